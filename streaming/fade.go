package streaming

import (
	"time"
)

// DefaultFadeDuration is how long a mesh takes to fade fully in or out.
const DefaultFadeDuration = 2 * time.Second

// Smoothstep eases t in [0,1] as t^2(3-2t). Inputs outside are clamped.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

type retiring struct {
	resident Resident
	start    time.Time
}

// FadeAnimator tracks meshes entering (spawning) and leaving (retiring) the
// resident set. Keys in neither state are fully opaque. A retiring entry
// owns the mesh until its fade completes.
type FadeAnimator struct {
	duration time.Duration
	spawning map[AnyKey]time.Time
	retiring map[AnyKey]retiring
}

// NewFadeAnimator returns an animator; a non-positive duration uses
// DefaultFadeDuration.
func NewFadeAnimator(d time.Duration) *FadeAnimator {
	if d <= 0 {
		d = DefaultFadeDuration
	}
	return &FadeAnimator{
		duration: d,
		spawning: make(map[AnyKey]time.Time),
		retiring: make(map[AnyKey]retiring),
	}
}

// Duration returns the fade length.
func (f *FadeAnimator) Duration() time.Duration { return f.duration }

func (f *FadeAnimator) progress(start, now time.Time) float64 {
	return float64(now.Sub(start)) / float64(f.duration)
}

// Spawn starts fading key in. A key that is still retiring is revived and
// its retiring mesh dropped.
func (f *FadeAnimator) Spawn(key AnyKey, now time.Time) {
	delete(f.retiring, key)
	f.spawning[key] = now
}

// Retire starts fading r out. The animator keeps r until the fade ends.
func (f *FadeAnimator) Retire(r Resident, now time.Time) {
	delete(f.spawning, r.Key)
	f.retiring[r.Key] = retiring{resident: r, start: now}
}

// Opacity is a pure function of the key's state and the elapsed time.
func (f *FadeAnimator) Opacity(key AnyKey, now time.Time) float32 {
	if start, ok := f.spawning[key]; ok {
		return float32(Smoothstep(f.progress(start, now)))
	}
	if r, ok := f.retiring[key]; ok {
		return float32(1 - Smoothstep(f.progress(r.start, now)))
	}
	return 1
}

// IsRetiring reports whether key is fading out.
func (f *FadeAnimator) IsRetiring(key AnyKey) bool {
	_, ok := f.retiring[key]
	return ok
}

// IsSpawning reports whether key is fading in.
func (f *FadeAnimator) IsSpawning(key AnyKey) bool {
	_, ok := f.spawning[key]
	return ok
}

// Advance drops finished entries and returns the meshes still fading out,
// each carrying its current opacity.
func (f *FadeAnimator) Advance(now time.Time) []Resident {
	for key, start := range f.spawning {
		if f.progress(start, now) >= 1 {
			delete(f.spawning, key)
		}
	}
	out := make([]Resident, 0, len(f.retiring))
	for key, r := range f.retiring {
		t := f.progress(r.start, now)
		if t >= 1 {
			delete(f.retiring, key)
			continue
		}
		res := r.resident
		res.Opacity = float32(1 - Smoothstep(t))
		out = append(out, res)
	}
	return out
}

// Retiring returns the number of meshes fading out.
func (f *FadeAnimator) Retiring() int { return len(f.retiring) }

// Clear forgets every fade.
func (f *FadeAnimator) Clear() {
	clear(f.spawning)
	clear(f.retiring)
}
