package voice

import (
	"log/slog"
	"sync"
)

// SilenceThreshold is the amplitude above which a transmitting peer counts as speaking.
const SilenceThreshold = 0.01

const (
	ColorMicOn  = "#22C55E"
	ColorMicOff = "#EF4444"
)

// Recorder is the voice substrate of the local peer.
type Recorder interface {
	SetTransmit(enabled bool)
	SetRecord(enabled bool)
	IsTransmitting() bool
	Amplitude() float64
}

func IsSpeaking(transmitting bool, amplitude float64) bool {
	return transmitting && amplitude > SilenceThreshold
}

// MicView describes the mic toggle button.
type MicView struct {
	Enabled bool
	Color   string
	Tooltip string
}

func ViewFor(enabled bool) MicView {
	if enabled {
		return MicView{Enabled: true, Color: ColorMicOn, Tooltip: "Mic On"}
	}

	return MicView{Enabled: false, Color: ColorMicOff, Tooltip: "Mic Off"}
}

// Mic owns the local mic state and tracks the speaking indicator.
type Mic struct {
	recorder Recorder
	enabled  bool
	speaking bool
	logger   *slog.Logger
}

// NewMic starts with the mic enabled.
func NewMic(recorder Recorder, logger *slog.Logger) *Mic {
	m := &Mic{recorder: recorder, enabled: true, logger: logger}
	m.apply()
	return m
}

func (m *Mic) Enabled() bool {
	return m.enabled
}

func (m *Mic) View() MicView {
	return ViewFor(m.enabled)
}

func (m *Mic) Toggle() MicView {
	m.enabled = !m.enabled
	m.apply()
	m.logger.Debug("mic toggled", "enabled", m.enabled)

	return m.View()
}

// Sample reads the recorder and reports the speaking flag and whether it
// changed since the last sample.
func (m *Mic) Sample() (speaking bool, changed bool) {
	if m.recorder == nil {
		return false, false
	}

	speaking = IsSpeaking(m.recorder.IsTransmitting(), m.recorder.Amplitude())
	changed = speaking != m.speaking
	m.speaking = speaking

	return speaking, changed
}

func (m *Mic) apply() {
	if m.recorder == nil {
		m.logger.Warn("mic state not applied, recorder is not bound")
		return
	}

	m.recorder.SetTransmit(m.enabled)
	m.recorder.SetRecord(m.enabled)
}

// NullRecorder is a recorder with no audio device. Its amplitude can be set
// to simulate speech.
type NullRecorder struct {
	mu        sync.Mutex
	transmit  bool
	record    bool
	amplitude float64
}

func (r *NullRecorder) SetTransmit(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transmit = enabled
}

func (r *NullRecorder) SetRecord(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record = enabled
}

func (r *NullRecorder) IsTransmitting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transmit
}

func (r *NullRecorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record
}

func (r *NullRecorder) Amplitude() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.record {
		return 0
	}
	return r.amplitude
}

func (r *NullRecorder) SetAmplitude(a float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.amplitude = a
}
