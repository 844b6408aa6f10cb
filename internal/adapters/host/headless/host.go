// Package headless is the surface host used when no window shell is present.
// It only tracks which instances are attached.
package headless

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/bnema/browser-accounts-cli/internal/logger"
	"github.com/bnema/browser-accounts-cli/internal/ports"
)

var _ ports.Host = (*Host)(nil)

type Surface struct {
	Handle     domain.Handle
	ProfileDir string
}

type Host struct {
	logger logger.Logger

	mu       sync.Mutex
	surfaces map[domain.Handle]string
}

func NewHost(log logger.Logger) *Host {
	return &Host{logger: log, surfaces: map[domain.Handle]string{}}
}

func (h *Host) Attach(handle domain.Handle, profileDir string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.surfaces[handle]; ok {
		return fmt.Errorf("attach surface %s: already attached", handle)
	}
	h.surfaces[handle] = profileDir
	h.logger.Debug("surface attached", logger.Int64("handle", int64(handle)))
	return nil
}

func (h *Host) Detach(handle domain.Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.surfaces[handle]; !ok {
		return fmt.Errorf("detach surface %s: not attached", handle)
	}
	delete(h.surfaces, handle)
	h.logger.Debug("surface detached", logger.Int64("handle", int64(handle)))
	return nil
}

func (h *Host) Surfaces() []Surface {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Surface, 0, len(h.surfaces))
	for handle, dir := range h.surfaces {
		out = append(out, Surface{Handle: handle, ProfileDir: dir})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}
