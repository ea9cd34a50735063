package alarm

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// MaxShieldLines bounds how much of the shield file is read.
const MaxShieldLines = 1024

// Shield hides a fault from the active file and from subscribers while it
// stays listed. The fault is still tracked and reappears when unlisted.
type Shield struct {
	ID       uint16
	SubID    uint16
	Resource string
}

func (s Shield) key() key { return key{s.ID, s.SubID, s.Resource} }

// ParseShield reads "<tag>@<id>@<subId>@<level>@<resource>@aabb" lines.
// Lines without the "@aabb" trailer or with bad numbers are skipped and
// returned as the second value.
func ParseShield(b []byte) ([]Shield, int) {
	var out []Shield
	skipped := 0
	sc := bufio.NewScanner(bytes.NewReader(b))
	for n := 0; n < MaxShieldLines && sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		body, ok := strings.CutSuffix(line, "@aabb")
		if !ok {
			continue
		}
		parts := strings.Split(body, "@")
		if len(parts) != 5 {
			skipped++
			continue
		}
		id, err1 := strconv.ParseUint(parts[1], 10, 16)
		sub, err2 := strconv.ParseUint(parts[2], 10, 16)
		_, err3 := strconv.Atoi(parts[3])
		if err := errors.Join(err1, err2, err3); err != nil || parts[4] == "" {
			skipped++
			continue
		}
		out = append(out, Shield{ID: uint16(id), SubID: uint16(sub), Resource: parts[4]})
	}
	return out, skipped
}

// SetShields replaces the shield list, rewrites the active file and notifies
// subscribers. A fault leaving the list counts as raised now.
func (p *Process) SetShields(shields []Shield) error {
	next := make(map[key]bool, len(shields))
	for _, s := range shields {
		next[s.key()] = true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	for k := range p.shielded {
		if e, ok := p.entries[k]; ok && !next[k] {
			e.fault.Raised = now
		}
	}
	p.shielded = next
	p.logger.Info("alarm shields applied", "count", len(next))
	return p.publishLocked()
}

// ReloadShields reads the shield file. A missing file clears every shield.
func (p *Process) ReloadShields() error {
	if p.shieldPath == "" {
		return nil
	}
	b, err := afero.ReadFile(p.fs, p.shieldPath)
	if errors.Is(err, fs.ErrNotExist) {
		return p.SetShields(nil)
	}
	if err != nil {
		return err
	}
	shields, skipped := ParseShield(b)
	if skipped > 0 {
		p.logger.Warn("malformed shield lines skipped", "path", p.shieldPath, "skipped", skipped)
	}
	return p.SetShields(shields)
}

// watchShields reloads the shield file whenever it is written, replaced or
// removed. The parent directory is watched so that a file created later is
// picked up too.
func (p *Process) watchShields(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()
	name := filepath.Clean(p.shieldPath)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name || ev.Op == fsnotify.Chmod {
				continue
			}
			// Writers truncate then write; let the write land.
			time.Sleep(shieldSettle)
			if err := p.ReloadShields(); err != nil {
				p.logger.Error("reload alarm shields", "path", p.shieldPath, "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			p.logger.Error("alarm shield watch", "path", p.shieldPath, "error", err)
		}
	}
}

const shieldSettle = 20 * time.Millisecond

func (p *Process) startShieldWatch(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err == nil {
		err = w.Add(filepath.Dir(p.shieldPath))
		if err != nil {
			w.Close()
		}
	}
	if err != nil {
		p.logger.Warn("alarm shield file not watched, read once", "path", p.shieldPath, "error", err)
		return
	}
	ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.watchShields(ctx, w)
	}()
}
