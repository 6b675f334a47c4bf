// Package audio plays short voice cues. Clips are pre-encoded .dca files
// (length-prefixed opus frames) looked up by name in the clip directory.
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"github.com/Lesamuen/Meridia2/internal/features/beacon"
)

// sendTimeout bounds each opus frame send; a wedged voice connection
// should not hold a touch worker hostage.
const sendTimeout = 10 * time.Second

// Player joins a voice channel, plays one clip, and leaves. One cue per
// guild at a time; overlapping requests are dropped, not queued.
type Player struct {
	session *discordgo.Session
	dir     string

	mu   sync.Mutex
	busy map[string]bool
}

// NewPlayer creates a cue player reading clips from dir.
func NewPlayer(session *discordgo.Session, dir string) *Player {
	return &Player{session: session, dir: dir, busy: make(map[string]bool)}
}

// Play performs one cue. Implements beacon.CuePlayer.
func (p *Player) Play(ctx context.Context, req beacon.AudioCueRequest) error {
	p.mu.Lock()
	if p.busy[req.GuildID] {
		p.mu.Unlock()
		log.WithFields(log.Fields{
			"guild_id": req.GuildID,
			"clip":     req.ClipName,
		}).Debug("voice cue dropped, guild already playing")
		return nil
	}
	p.busy[req.GuildID] = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.busy, req.GuildID)
		p.mu.Unlock()
	}()

	frames, err := loadClip(filepath.Join(p.dir, req.ClipName+".dca"))
	if err != nil {
		return fmt.Errorf("loading clip %q: %w", req.ClipName, err)
	}

	vc, err := p.session.ChannelVoiceJoin(req.GuildID, req.VoiceChannelID, false, true)
	if err != nil {
		return fmt.Errorf("joining voice channel: %w", err)
	}
	defer func() {
		if err := vc.Disconnect(); err != nil {
			log.WithError(err).Warn("voice disconnect failed")
		}
	}()

	if err := vc.Speaking(true); err != nil {
		return fmt.Errorf("setting speaking state: %w", err)
	}
	defer func() {
		if err := vc.Speaking(false); err != nil {
			log.WithError(err).Debug("clearing speaking state failed")
		}
	}()

	for _, frame := range frames {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case vc.OpusSend <- frame:
		case <-time.After(sendTimeout):
			return errors.New("voice send stalled")
		}
	}
	return nil
}

// loadClip reads a whole .dca file into opus frames.
func loadClip(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var frames [][]byte
	for {
		var frameLen int16
		err := binary.Read(f, binary.LittleEndian, &frameLen)
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading frame length: %w", err)
		}
		if frameLen <= 0 {
			return nil, fmt.Errorf("invalid frame length %d", frameLen)
		}

		frame := make([]byte, frameLen)
		if _, err := io.ReadFull(f, frame); err != nil {
			return nil, fmt.Errorf("reading frame: %w", err)
		}
		frames = append(frames, frame)
	}
}
