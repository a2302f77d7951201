// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package memory maintains the user's interest profile: it folds feedback
// into the preference text through the judge and keeps the text bounded
// by compressing it when it grows past a limit.
//
// Every operation takes a profile value and returns a new one. On any
// failure the caller gets the prior profile back unchanged, so there are
// no partial updates.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/paperpal/internal/judge"
	"github.com/pdiddy/paperpal/internal/metrics"
	"github.com/pdiddy/paperpal/pkg/types"
)

// State is the manager's lifecycle position.
type State int

const (
	Idle State = iota
	Updating
	Compressing
)

func (s State) String() string {
	switch s {
	case Updating:
		return "updating"
	case Compressing:
		return "compressing"
	default:
		return "idle"
	}
}

// ErrBusy is returned when an update is requested while another runs.
var ErrBusy = errors.New("profile update already in progress")

// compressRounds bounds judge compression attempts per pass.
const compressRounds = 2

// Manager runs profile updates one at a time.
type Manager struct {
	Judge judge.Judge

	// MaxLength triggers compression; TargetLength is what compression aims for.
	MaxLength    int
	TargetLength int

	Log     logrus.FieldLogger
	Metrics *metrics.Metrics

	// Now is the clock; tests pin it.
	Now func() time.Time

	mu    sync.Mutex
	state State
}

// NewManager configures a Manager from cfg.
func NewManager(j judge.Judge, cfg types.MemoryConfig, log logrus.FieldLogger, m *metrics.Metrics) *Manager {
	return &Manager{
		Judge:        j,
		MaxLength:    cfg.MaxLength,
		TargetLength: cfg.TargetLength,
		Log:          log,
		Metrics:      m,
	}
}

// State reports what the manager is doing.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// UpdateReport describes what an update did.
type UpdateReport struct {
	Signals    []types.FeedbackSignal
	Notes      []string
	Compressed bool
	Removed    []string
}

// Update folds event into profile. The feedback is first resolved against
// ranked (the RankedSet the user was looking at), then sent to the judge
// together with the current text. If the new text exceeds MaxLength it is
// compressed before the new version is returned. Negative topic phrases
// become structured exclusions that compression cannot drop; a positive
// phrase lifts a matching exclusion.
//
// On any failure the returned profile is profile itself and the error
// wraps types.ErrProfileUpdateFailed.
func (m *Manager) Update(ctx context.Context, profile types.InterestProfile, event types.FeedbackEvent, ranked types.RankedSet) (types.InterestProfile, UpdateReport, error) {
	if err := m.begin(Updating); err != nil {
		return profile, UpdateReport{}, err
	}
	defer m.end()

	text := strings.TrimSpace(event.Text)
	if text == "" {
		return profile, UpdateReport{Notes: []string{"empty feedback"}}, nil
	}

	res := Resolve(text, ranked)
	report := UpdateReport{Signals: res.Signals, Notes: res.Notes}
	log := m.logger().WithFields(logrus.Fields{"version": profile.Version, "signals": len(res.Signals)})

	updated, err := m.Judge.UpdateProfile(ctx, profile.Text, renderSignals(res, text))
	if err != nil {
		return m.fail(profile, report, "update", err)
	}
	updated = strings.TrimSpace(updated)
	if updated == "" {
		return m.fail(profile, report, "update", fmt.Errorf("%w: empty memory", types.ErrMalformedResponse))
	}

	next := profile.Clone()
	next.Text = updated
	next.Exclusions = mergeExclusions(profile.Exclusions, res.Exclusions(), res.Interests())

	if m.over(next.Text) {
		m.setState(Compressing)
		compressed, removed, err := m.compressText(ctx, next.Text)
		if err != nil {
			return m.fail(profile, report, "compress", err)
		}
		next.Text = compressed
		report.Compressed = true
		report.Removed = removed
		m.Metrics.Profile("compressed")
	}

	next.Version = profile.Version + 1
	next.UpdatedAt = m.now()
	m.Metrics.Profile("updated")
	log.WithFields(logrus.Fields{"new_version": next.Version, "compressed": report.Compressed}).Info("profile updated")
	return next, report, nil
}

// Compress shortens profile when its text exceeds MaxLength. A profile at
// or under the limit is returned as is, which makes Compress idempotent:
// compressing its own output changes nothing. The result is accepted only
// when strictly shorter, so repeated passes cannot oscillate.
func (m *Manager) Compress(ctx context.Context, profile types.InterestProfile) (types.InterestProfile, bool, error) {
	if !m.over(profile.Text) {
		return profile, false, nil
	}
	if err := m.begin(Compressing); err != nil {
		return profile, false, err
	}
	defer m.end()

	text, _, err := m.compressText(ctx, profile.Text)
	if err != nil {
		p, _, err := m.fail(profile, UpdateReport{}, "compress", err)
		return p, false, err
	}
	next := profile.Clone()
	next.Text = text
	next.Version = profile.Version + 1
	next.UpdatedAt = m.now()
	m.Metrics.Profile("compressed")
	return next, true, nil
}

// Append adds text to the memory verbatim, compressing if needed.
func (m *Manager) Append(ctx context.Context, profile types.InterestProfile, text string) (types.InterestProfile, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return profile, nil
	}
	next := profile.Clone()
	if next.Text == "" {
		next.Text = text
	} else {
		next.Text = strings.TrimSpace(next.Text) + "\n" + text
	}
	next.Version = profile.Version + 1
	next.UpdatedAt = m.now()

	if !m.over(next.Text) {
		m.Metrics.Profile("updated")
		return next, nil
	}
	compressed, _, err := m.Compress(ctx, next)
	if err != nil {
		return profile, err
	}
	// One version for the whole append.
	compressed.Version = profile.Version + 1
	return compressed, nil
}

// Reset returns an empty profile one version past profile.
func (m *Manager) Reset(profile types.InterestProfile) types.InterestProfile {
	m.Metrics.Profile("reset")
	return types.InterestProfile{Version: profile.Version + 1, UpdatedAt: m.now()}
}

// compressText asks the judge to shorten text, up to compressRounds times.
// Each accepted round must be strictly shorter; a failed first round fails
// the pass, a failed later round keeps the text so far. If the judge cannot
// bring the text under MaxLength it is cut at the last sentence that fits.
func (m *Manager) compressText(ctx context.Context, text string) (string, []string, error) {
	target := m.TargetLength
	if target <= 0 || target >= m.MaxLength {
		target = m.MaxLength * 3 / 4
	}

	var removed []string
	current := text
	for round := 0; round < compressRounds && m.over(current); round++ {
		c, err := m.Judge.CompressProfile(ctx, current, target)
		if err == nil {
			c.Text = strings.TrimSpace(c.Text)
			if c.Text == "" || len(c.Text) >= len(current) {
				err = fmt.Errorf("%w: compression did not shorten memory (%d -> %d chars)",
					types.ErrMalformedResponse, len(current), len(c.Text))
			}
		}
		if err != nil {
			if round == 0 {
				return "", nil, err
			}
			// Keep the earlier round and cut below.
			m.logger().WithError(err).WithField("round", round+1).Warn("compression stalled; cutting memory")
			break
		}
		shorter := c.Text
		current = shorter
		removed = append(removed, c.Removed...)
	}
	if m.over(current) {
		current = cutToLength(current, m.MaxLength)
	}
	return current, removed, nil
}

// cutToLength trims text to at most n bytes, preferring a sentence or
// line boundary. It never splits a rune.
func cutToLength(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	cut := text[:n]
	if i := strings.LastIndexAny(cut, ".\n"); i > n/2 {
		cut = cut[:i+1]
	}
	return strings.TrimSpace(cut)
}

func (m *Manager) over(text string) bool {
	return m.MaxLength > 0 && len(text) > m.MaxLength
}

func (m *Manager) begin(s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return fmt.Errorf("%w: %w", types.ErrProfileUpdateFailed, ErrBusy)
	}
	m.state = s
	return nil
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) end() { m.setState(Idle) }

func (m *Manager) fail(profile types.InterestProfile, report UpdateReport, stage string, err error) (types.InterestProfile, UpdateReport, error) {
	m.Metrics.Profile("failed")
	m.logger().WithFields(logrus.Fields{"version": profile.Version, "stage": stage}).WithError(err).Warn("profile update failed, keeping prior profile")
	return profile, report, fmt.Errorf("%w: %s: %w", types.ErrProfileUpdateFailed, stage, err)
}

// mergeExclusions adds new exclusions and lifts those the user now asks
// for, matching case-insensitively and keeping first-seen spelling.
func mergeExclusions(existing, add, lift []string) []string {
	lifted := map[string]bool{}
	for _, l := range lift {
		lifted[strings.ToLower(l)] = true
	}
	seen := map[string]bool{}
	var out []string
	for _, e := range append(append([]string(nil), existing...), add...) {
		k := strings.ToLower(strings.TrimSpace(e))
		if k == "" || seen[k] || lifted[k] {
			continue
		}
		seen[k] = true
		out = append(out, strings.TrimSpace(e))
	}
	return out
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func (m *Manager) logger() logrus.FieldLogger {
	if m.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return m.Log
}
