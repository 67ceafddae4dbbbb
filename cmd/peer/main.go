package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/watchparty/internal/app"
	"github.com/sharetube/watchparty/internal/playback"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	serverURL = configVar[string]{
		envKey:       "PEER_SERVER_URL",
		flagKey:      "server-url",
		defaultValue: "http://localhost:8080",
	}
	name = configVar[string]{
		envKey:       "PEER_NAME",
		flagKey:      "name",
		defaultValue: "",
	}
	room = configVar[string]{
		envKey:       "PEER_ROOM",
		flagKey:      "room",
		defaultValue: "",
	}
	intent = configVar[string]{
		envKey:       "PEER_INTENT",
		flagKey:      "intent",
		defaultValue: "join",
	}
	logLevel = configVar[string]{
		envKey:       "PEER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "WARN",
	}
	tickInterval = configVar[time.Duration]{
		envKey:       "PEER_TICK_INTERVAL",
		flagKey:      "tick-interval",
		defaultValue: 100 * time.Millisecond,
	}
	keepalive = configVar[time.Duration]{
		envKey:       "PEER_KEEPALIVE",
		flagKey:      "keepalive",
		defaultValue: 15 * time.Second,
	}
	driftTolerance = configVar[float64]{
		envKey:       "PEER_DRIFT_TOLERANCE",
		flagKey:      "drift-tolerance",
		defaultValue: playback.DefaultDriftTolerance,
	}
	secondarySlots = configVar[int]{
		envKey:       "PEER_SECONDARY_SLOTS",
		flagKey:      "secondary-slots",
		defaultValue: 3,
	}
	videoDuration = configVar[float64]{
		envKey:       "PEER_VIDEO_DURATION",
		flagKey:      "video-duration",
		defaultValue: 7200,
	}
	colors = configVar[bool]{
		envKey:       "PEER_COLORS",
		flagKey:      "colors",
		defaultValue: true,
	}
)

func loadPeerConfig() *app.PeerConfig {
	pflag.String(serverURL.flagKey, serverURL.defaultValue, "Session server url")
	pflag.String(name.flagKey, name.defaultValue, "Player name")
	pflag.String(room.flagKey, room.defaultValue, "Room code")
	pflag.String(intent.flagKey, intent.defaultValue, "create or join")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Duration(tickInterval.flagKey, tickInterval.defaultValue, "Playback republish and speaking sample interval")
	pflag.Duration(keepalive.flagKey, keepalive.defaultValue, "Keepalive interval, 0 disables it")
	pflag.Float64(driftTolerance.flagKey, driftTolerance.defaultValue, "Seconds of drift tolerated before seeking")
	pflag.Int(secondarySlots.flagKey, secondarySlots.defaultValue, "Number of remote participant slots")
	pflag.Float64(videoDuration.flagKey, videoDuration.defaultValue, "Length of the simulated video in seconds")
	pflag.Bool(colors.flagKey, colors.defaultValue, "Colored output")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	for _, v := range []struct{ flagKey, envKey string }{
		{serverURL.flagKey, serverURL.envKey},
		{name.flagKey, name.envKey},
		{room.flagKey, room.envKey},
		{intent.flagKey, intent.envKey},
		{logLevel.flagKey, logLevel.envKey},
		{tickInterval.flagKey, tickInterval.envKey},
		{keepalive.flagKey, keepalive.envKey},
		{driftTolerance.flagKey, driftTolerance.envKey},
		{secondarySlots.flagKey, secondarySlots.envKey},
		{videoDuration.flagKey, videoDuration.envKey},
		{colors.flagKey, colors.envKey},
	} {
		viper.BindEnv(v.flagKey, v.envKey)
	}

	viper.SetDefault(serverURL.flagKey, serverURL.defaultValue)
	viper.SetDefault(name.flagKey, name.defaultValue)
	viper.SetDefault(room.flagKey, room.defaultValue)
	viper.SetDefault(intent.flagKey, intent.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(tickInterval.flagKey, tickInterval.defaultValue)
	viper.SetDefault(keepalive.flagKey, keepalive.defaultValue)
	viper.SetDefault(driftTolerance.flagKey, driftTolerance.defaultValue)
	viper.SetDefault(secondarySlots.flagKey, secondarySlots.defaultValue)
	viper.SetDefault(videoDuration.flagKey, videoDuration.defaultValue)
	viper.SetDefault(colors.flagKey, colors.defaultValue)

	return &app.PeerConfig{
		ServerURL:      viper.GetString(serverURL.flagKey),
		Name:           viper.GetString(name.flagKey),
		Room:           viper.GetString(room.flagKey),
		Intent:         viper.GetString(intent.flagKey),
		LogLevel:       viper.GetString(logLevel.flagKey),
		TickInterval:   viper.GetDuration(tickInterval.flagKey),
		Keepalive:      viper.GetDuration(keepalive.flagKey),
		DriftTolerance: viper.GetFloat64(driftTolerance.flagKey),
		SecondarySlots: viper.GetInt(secondarySlots.flagKey),
		VideoDuration:  viper.GetFloat64(videoDuration.flagKey),
		Colors:         viper.GetBool(colors.flagKey),
	}
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	peerConfig := loadPeerConfig()
	if err := peerConfig.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "commands: toggle, mic, name <name>, status, leave, connect, quit\n")
	if err := app.RunPeer(ctx, peerConfig, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}
