// Package search implements the size-targeting search: given a decoded
// image and a [min,max] kilobyte window, find an encoding inside the window
// by adjusting lossy quality first and pixel dimensions second. The search
// always terminates and always returns usable bytes; an unreachable window
// is reported through Result.Status, not an error.
package search

import (
	"context"
	"fmt"
	"image"
)

// Codec abstracts the platform codec consumed by the engine. Decode turns
// input bytes into a bitmap; Encode renders the bitmap at the given
// dimensions and quality in (0,1] and returns the compressed bytes.
type Codec interface {
	Decode(data []byte) (image.Image, error)
	Encode(img image.Image, width, height int, quality float64) ([]byte, error)
}

// Config holds the search tunables. Zero values are not usable; start from
// DefaultConfig.
type Config struct {
	// MaxQuality is used for the baseline probe and for enlargement
	MaxQuality float64
	// InitialQuality seeds the bisection
	InitialQuality float64
	// MinQuality is the fixed quality used during forced shrinking
	MinQuality float64
	// EnlargeStep is the per-step scale multiplier for undersized images
	EnlargeStep float64
	// MaxEnlarge caps the total scale-up of an undersized image
	MaxEnlarge float64
	// MaxIterations bounds the quality bisection
	MaxIterations int
	// StuckAfter is the iteration threshold for the dimension-reset sub-rule
	StuckAfter int
	// ResetShrink is the dimension factor applied on each reset
	ResetShrink float64
	// ShrinkStep is the per-step scale decrement during forced shrinking
	ShrinkStep float64
	// ShrinkFloor is the smallest allowed scale relative to the original
	ShrinkFloor float64
}

// DefaultConfig returns the tuning the service ships with.
func DefaultConfig() Config {
	return Config{
		MaxQuality:     1.0,
		InitialQuality: 0.7,
		MinQuality:     0.1,
		EnlargeStep:    1.2,
		MaxEnlarge:     3.0,
		MaxIterations:  20,
		StuckAfter:     10,
		ResetShrink:    0.9,
		ShrinkStep:     0.1,
		ShrinkFloor:    0.1,
	}
}

// Engine runs size-targeting searches. It is stateless between calls; each
// Fit owns its own image and candidate chain, so concurrent calls on
// different inputs are safe without locking.
type Engine struct {
	codec Codec
	cfg   Config
}

// NewEngine creates an Engine with DefaultConfig
func NewEngine(codec Codec) *Engine {
	return NewEngineWithConfig(codec, DefaultConfig())
}

// NewEngineWithConfig creates an Engine with explicit tunables
func NewEngineWithConfig(codec Codec, cfg Config) *Engine {
	return &Engine{codec: codec, cfg: cfg}
}

// Fit decodes data and searches for an encoding whose size lands in r.
// The range is validated before any decode or encode work happens.
func (e *Engine) Fit(ctx context.Context, data []byte, r Range) (*Result, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	img, err := e.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecode, err)
	}
	return e.FitImage(ctx, img, r)
}

// FitImage runs the search on an already-decoded image.
func (e *Engine) FitImage(ctx context.Context, img image.Image, r Range) (*Result, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	run := &fitRun{
		engine: e,
		src:    img,
		srcW:   bounds.Dx(),
		srcH:   bounds.Dy(),
		rng:    r,
	}

	// Explicit state machine: each state is responsible for its own
	// termination bound, so the overall search cannot loop forever.
	st := stateBaseline
	for st != stateDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch st {
		case stateBaseline:
			st, err = run.baseline()
		case stateEnlarge:
			st, err = run.enlarge()
		case stateQualitySearch:
			st, err = run.qualitySearch()
		case stateDimensionReset:
			st, err = run.dimensionReset()
		case stateForcedShrink:
			st, err = run.forcedShrink()
		}
		if err != nil {
			return nil, err
		}
	}
	return run.result(), nil
}

type state int

const (
	stateBaseline state = iota
	stateEnlarge
	stateQualitySearch
	stateDimensionReset
	stateForcedShrink
	stateDone
)

// candidate is one encoding attempt. Only the most recent candidate is
// kept; superseded ones are discarded.
type candidate struct {
	width   int
	height  int
	quality float64
	bytes   []byte
	sizeKB  int
}

// fitRun is the per-call state of one search. It lives for exactly one
// FitImage invocation.
type fitRun struct {
	engine *Engine
	src    image.Image
	srcW   int
	srcH   int
	rng    Range

	cand    candidate
	encodes int

	// bisection state
	qLow    float64
	qHigh   float64
	quality float64
	iters   int
}

func (s *fitRun) encode(width, height int, quality float64) error {
	b, err := s.engine.codec.Encode(s.src, width, height, quality)
	if err != nil {
		return fmt.Errorf("encode at %dx%d q=%.2f: %w", width, height, quality, err)
	}
	s.encodes++
	s.cand = candidate{
		width:   width,
		height:  height,
		quality: quality,
		bytes:   b,
		sizeKB:  EstimateKB(b),
	}
	return nil
}

// baseline probes the native encoding at maximum quality and decides which
// branch the search takes.
func (s *fitRun) baseline() (state, error) {
	if err := s.encode(s.srcW, s.srcH, s.engine.cfg.MaxQuality); err != nil {
		return stateDone, err
	}
	switch {
	case s.cand.sizeKB < s.rng.MinKB:
		return stateEnlarge, nil
	case s.cand.sizeKB > s.rng.MaxKB:
		s.initBisection(s.engine.cfg.MaxQuality)
		return stateQualitySearch, nil
	}
	return stateDone, nil
}

// enlarge grows an undersized image by fixed steps at maximum quality until
// the minimum is reached or the total scale-up cap is hit. Enlarging
// further would only degrade quality: an image that stays under the minimum
// at the cap is fundamentally too small for the requested window.
func (s *fitRun) enlarge() (state, error) {
	scale := 1.0
	for s.cand.sizeKB < s.rng.MinKB && scale < s.engine.cfg.MaxEnlarge {
		scale *= s.engine.cfg.EnlargeStep
		if scale > s.engine.cfg.MaxEnlarge {
			scale = s.engine.cfg.MaxEnlarge
		}
		w := scaleDim(s.srcW, scale)
		h := scaleDim(s.srcH, scale)
		if err := s.encode(w, h, s.engine.cfg.MaxQuality); err != nil {
			return stateDone, err
		}
	}
	if s.cand.sizeKB > s.rng.MaxKB {
		// An enlargement step overshot the upper bound; rebalance with
		// the quality search at the enlarged dimensions.
		s.initBisection(s.engine.cfg.MaxQuality)
		return stateQualitySearch, nil
	}
	return stateDone, nil
}

func (s *fitRun) initBisection(ceiling float64) {
	s.qLow = 0
	s.qHigh = ceiling
	s.quality = s.engine.cfg.InitialQuality
	if s.quality >= ceiling {
		s.quality = (s.qLow + ceiling) / 2
	}
}

// qualitySearch bisects over quality at the current dimensions. Encoded
// size is treated as non-decreasing in quality for fixed dimensions; codec
// quirks can bend that slightly, which is why the iteration cap and the
// stuck-detection sub-rule exist rather than trusting convergence.
func (s *fitRun) qualitySearch() (state, error) {
	for s.iters < s.engine.cfg.MaxIterations {
		s.iters++
		if err := s.encode(s.cand.width, s.cand.height, s.quality); err != nil {
			return stateDone, err
		}
		size := s.cand.sizeKB
		if s.rng.Contains(size) {
			return stateDone, nil
		}
		if size > s.rng.MaxKB {
			s.qHigh = s.quality
			s.quality = (s.qLow + s.quality) / 2
			// Still above max after a stretch of iterations: quality
			// alone has a size floor for this pixel count, shrink.
			if s.iters%s.engine.cfg.StuckAfter == 0 {
				return stateDimensionReset, nil
			}
		} else {
			s.qLow = s.quality
			s.quality = (s.quality + s.qHigh) / 2
		}
	}
	if s.cand.sizeKB > s.rng.MaxKB {
		return stateForcedShrink, nil
	}
	return stateDone, nil
}

// dimensionReset shrinks the working dimensions and restarts the bisection
// under a lowered quality ceiling.
func (s *fitRun) dimensionReset() (state, error) {
	w := scaleDim(s.cand.width, s.engine.cfg.ResetShrink)
	h := scaleDim(s.cand.height, s.engine.cfg.ResetShrink)
	s.cand.width, s.cand.height = w, h
	// Prior bounds were measured at larger dimensions; keep only the
	// lowered ceiling and restart the interval below it.
	s.qLow = 0
	s.quality = (s.qLow + s.qHigh) / 2
	return stateQualitySearch, nil
}

// forcedShrink is the last resort: step the dimensions down from the
// original size at fixed minimal quality until the upper bound is met or
// the scale floor is reached, whichever comes first.
func (s *fitRun) forcedShrink() (state, error) {
	cfg := s.engine.cfg
	for step := 1; ; step++ {
		scale := 1.0 - float64(step)*cfg.ShrinkStep
		atFloor := scale <= cfg.ShrinkFloor
		if atFloor {
			scale = cfg.ShrinkFloor
		}
		w := scaleDim(s.srcW, scale)
		h := scaleDim(s.srcH, scale)
		if err := s.encode(w, h, cfg.MinQuality); err != nil {
			return stateDone, err
		}
		if s.cand.sizeKB <= s.rng.MaxKB || atFloor {
			return stateDone, nil
		}
	}
}

func (s *fitRun) result() *Result {
	status := WithinRange
	switch {
	case s.cand.sizeKB < s.rng.MinKB:
		status = BelowMin
	case s.cand.sizeKB > s.rng.MaxKB:
		status = AboveMax
	}
	return &Result{
		Bytes:   s.cand.bytes,
		SizeKB:  s.cand.sizeKB,
		Status:  status,
		Range:   s.rng,
		Width:   s.cand.width,
		Height:  s.cand.height,
		Quality: s.cand.quality,
		Encodes: s.encodes,
	}
}

func scaleDim(dim int, scale float64) int {
	d := int(float64(dim) * scale)
	if d < 1 {
		d = 1
	}
	return d
}
