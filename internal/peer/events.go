package peer

import (
	"context"
	"errors"

	"github.com/sharetube/watchparty/internal/playback"
	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/sharetube/watchparty/internal/roster"
)

// events posts every network callback onto the peer executor.
type events struct{ p *Peer }

func (e events) OnSessionJoined(s protocol.SessionJoined) {
	e.p.post(func() { e.p.handleSessionJoined(s) })
}

func (e events) OnPeerJoined(peer protocol.Peer) {
	e.p.post(func() { e.p.handlePeer(peer) })
}

func (e events) OnPeerUpdated(peer protocol.Peer) {
	e.p.post(func() { e.p.handlePeer(peer) })
}

func (e events) OnPeerLeft(peerId int) {
	e.p.post(func() { e.p.handlePeerLeft(roster.ParticipantID(peerId)) })
}

func (e events) OnStateChanged(pb protocol.Playback) {
	e.p.post(func() { e.p.handleStateChanged(pb) })
}

func (e events) OnToggleRequested(req protocol.ToggleRequested) {
	e.p.post(func() { e.p.handleToggleRequested(req) })
}

func (e events) OnDisconnected(err error) {
	e.p.lifecycle.Drop(err)
	e.p.post(e.p.handleDisconnected)
}

func (p *Peer) handleSessionJoined(s protocol.SessionJoined) {
	p.mu.Lock()
	p.localId = roster.ParticipantID(s.PeerId)
	p.mu.Unlock()

	p.roster.Reset()
	p.roster.SetRoom(s.Session)
	p.playback.Reset()
	for _, peer := range s.Peers {
		p.handlePeer(peer)
	}
	p.handleStateChanged(s.Playback)

	p.logger.Info("session joined", "session", s.Session, "peer_id", s.PeerId, "peers", len(s.Peers))

	p.releaseConnect()
}

// handlePeer registers a peer or refreshes its metadata. Arrival order does
// not matter: the roster recomputes the whole layout on every change.
func (p *Peer) handlePeer(peer protocol.Peer) {
	id := roster.ParticipantID(peer.Id)
	isLocal := id == p.localParticipantId()

	md := roster.Metadata{
		Name:       peer.Name,
		IsLocal:    isLocal,
		MicEnabled: peer.MicEnabled,
		IsSpeaking: peer.IsSpeaking,
	}
	if isLocal {
		md.MicEnabled = p.mic.Enabled()
	}

	if _, err := p.roster.Upsert(id, md); err != nil {
		p.logger.Warn("peer ignored", "peer_id", peer.Id, "error", err)
	}
}

func (p *Peer) handlePeerLeft(id roster.ParticipantID) {
	if _, err := p.roster.Remove(id); err != nil {
		if errors.Is(err, roster.ErrParticipantNotFound) {
			p.logger.Debug("unknown peer left", "peer_id", id)
			return
		}
		p.logger.Warn("failed to remove peer", "peer_id", id, "error", err)
	}
}

func (p *Peer) handleStateChanged(pb protocol.Playback) {
	p.playback.SetAuthority(roster.ParticipantID(pb.AuthorityId) == p.localParticipantId())
	p.playback.Apply(playback.State{
		IsPlaying: pb.IsPlaying,
		Position:  pb.Position,
		Revision:  pb.Revision,
	})
}

func (p *Peer) handleToggleRequested(req protocol.ToggleRequested) {
	ctx := context.Background()
	if err := p.playback.HandleToggleRequest(ctx, req.Position); err != nil {
		p.logger.Warn("toggle request not handled", "requester_id", req.RequesterId, "error", err)
	}
}

func (p *Peer) handleDisconnected() {
	p.setSession(nil)
	p.mu.Lock()
	p.localId = roster.NoParticipant
	p.mu.Unlock()
	p.releaseConnect()

	p.playback.Reset()
	p.roster.Reset()
}

func (p *Peer) localParticipantId() roster.ParticipantID {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.localId
}

// releaseConnect unblocks a Connect waiting for its snapshot.
func (p *Peer) releaseConnect() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.joined != nil {
		close(p.joined)
		p.joined = nil
	}
}
