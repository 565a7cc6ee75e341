package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oasislearninghub/oasis/internal/core"
	"github.com/oasislearninghub/oasis/internal/core/carousel"
	"github.com/oasislearninghub/oasis/internal/core/notice"
)

// ErrInvalidInput is wrapped by every input validation failure.
var ErrInvalidInput = errors.New("invalid input")

// Kind is the type of a host input event.
type Kind string

const (
	KindClick        Kind = "click"
	KindSubmit       Kind = "submit"
	KindKeyDown      Kind = "keydown"
	KindTouchStart   Kind = "touchstart"
	KindTouchEnd     Kind = "touchend"
	KindPointerEnter Kind = "pointerenter"
	KindPointerLeave Kind = "pointerleave"
	KindInput        Kind = "input"
	KindLookup       Kind = "lookup"
	KindCloseAlert   Kind = "alert-close"
	KindAutoplay     Kind = "autoplay"
)

// Click targets.
const (
	TargetButton       = "button"
	TargetLink         = "link"
	TargetForm         = "form"
	TargetCarouselPrev = "carousel-prev"
	TargetCarouselNext = "carousel-next"
	TargetIndicator    = "indicator"
)

// Input is one event delivered by the host.
type Input struct {
	Kind    Kind    `json:"kind"`
	Target  string  `json:"target,omitempty"`
	Label   string  `json:"label,omitempty"`
	Primary bool    `json:"primary,omitempty"`
	Href    string  `json:"href,omitempty"`
	Index   int     `json:"index,omitempty"`
	Key     string  `json:"key,omitempty"`
	X       float64 `json:"x,omitempty"`
	Value   string  `json:"value,omitempty"`
	ID      string  `json:"id,omitempty"`
	Enabled bool    `json:"enabled,omitempty"`

	prevented bool
}

// PreventDefault marks the event's default effect as suppressed.
func (in *Input) PreventDefault() { in.prevented = true }

// Normalize lowercases the kind and target and validates the combination.
func (in *Input) Normalize() error {
	in.Kind = Kind(strings.ToLower(strings.TrimSpace(string(in.Kind))))
	in.Target = strings.ToLower(strings.TrimSpace(in.Target))

	switch in.Kind {
	case KindClick:
		switch in.Target {
		case "":
			in.Target = TargetButton
		case TargetButton, TargetLink, TargetCarouselPrev, TargetCarouselNext, TargetIndicator:
		default:
			return fmt.Errorf("%w: unknown click target %q", ErrInvalidInput, in.Target)
		}
	case KindSubmit:
		in.Target = TargetForm
	case KindLookup:
		if strings.TrimSpace(in.ID) == "" {
			return fmt.Errorf("%w: lookup requires an enrollment id", ErrInvalidInput)
		}
	case KindKeyDown, KindTouchStart, KindTouchEnd, KindPointerEnter, KindPointerLeave, KindInput, KindCloseAlert, KindAutoplay:
	default:
		return fmt.Errorf("%w: unknown input kind %q", ErrInvalidInput, in.Kind)
	}
	return nil
}

// Outcome reports what an input did.
type Outcome struct {
	Kind       Kind             `json:"kind"`
	Allowed    bool             `json:"allowed"`
	Prevented  bool             `json:"prevented"`
	Policy     string           `json:"policy,omitempty"`
	Value      string           `json:"value,omitempty"`
	Complete   bool             `json:"complete,omitempty"`
	Enrollment *core.Enrollment `json:"enrollment,omitempty"`
	Carousel   carousel.State   `json:"carousel"`
	Notice     *notice.Notice   `json:"notice,omitempty"`
	Alert      *notice.Alert    `json:"alert,omitempty"`
}
