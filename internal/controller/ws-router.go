package controller

import (
	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw(), c.metricsWSMw())
	mux.Validate(c.validate.Check)
	mux.OnError(c.handleWSError)

	wsrouter.Handle(mux, protocol.TypeAlive, c.handleAlive)

	// profile
	wsrouter.Handle(mux, protocol.TypeUpdateProfile, c.handleUpdateProfile)
	wsrouter.Handle(mux, protocol.TypeUpdateMic, c.handleUpdateMic)
	wsrouter.Handle(mux, protocol.TypeUpdateSpeaking, c.handleUpdateSpeaking)

	// playback
	wsrouter.Handle(mux, protocol.TypeRequestToggle, c.handleRequestToggle)
	wsrouter.Handle(mux, protocol.TypePublishState, c.handlePublishState)

	return mux
}
