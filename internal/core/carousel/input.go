package carousel

// Key names for KeyDown.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
)

// ClickPrev handles the previous button.
func (c *Carousel) ClickPrev() {
	if c.controls.Prev {
		c.Prev()
	}
}

// ClickNext handles the next button.
func (c *Carousel) ClickNext() {
	if c.controls.Next {
		c.Next()
	}
}

// ClickIndicator handles an indicator activation. Clicks on indicators the
// host never rendered are ignored.
func (c *Carousel) ClickIndicator(i int) {
	if !c.controls.Indicators || i < 0 || i >= len(c.indicators) {
		return
	}
	_ = c.GoTo(i)
}

// KeyDown handles a key press anywhere in the view.
func (c *Carousel) KeyDown(key string) {
	switch key {
	case KeyArrowLeft:
		c.Prev()
	case KeyArrowRight:
		c.Next()
	}
}

// TouchStart records where a horizontal gesture began.
func (c *Carousel) TouchStart(x float64) {
	if c.Inert() || !c.controls.Gesture {
		return
	}
	c.touchStartX = x
}

// TouchEnd completes a gesture. A leftward displacement beyond the
// threshold advances, a rightward one goes back. The start position is kept
// so a touchend without a new touchstart measures from the previous one.
func (c *Carousel) TouchEnd(x float64) {
	if c.Inert() || !c.controls.Gesture {
		return
	}
	switch {
	case x < c.touchStartX-c.swipeThreshold:
		c.Next()
	case x > c.touchStartX+c.swipeThreshold:
		c.Prev()
	}
}

// PointerEnter pauses autoplay while the pointer is over the carousel. A
// resume already scheduled by a navigation click still fires.
func (c *Carousel) PointerEnter() {
	if c.controls.Hover {
		c.StopAutoplay()
	}
}

// PointerLeave resumes autoplay immediately.
func (c *Carousel) PointerLeave() {
	if c.controls.Hover {
		c.StartAutoplay()
	}
}
