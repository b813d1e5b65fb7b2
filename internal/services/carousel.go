package services

// Carousel is a fixed-size window rotating over a list. Index is the
// position of the first visible item; rotation wraps in both directions.
type Carousel struct {
	Len    int
	Window int
	Index  int
}

func NewCarousel(length, window, index int) Carousel {
	c := Carousel{Len: length, Window: window}
	c.Index = c.wrap(index)
	return c
}

func (c Carousel) wrap(i int) int {
	if c.Len <= 0 {
		return 0
	}
	i %= c.Len
	if i < 0 {
		i += c.Len
	}
	return i
}

// Advance moves n steps forward (negative n moves back).
func (c Carousel) Advance(n int) Carousel {
	c.Index = c.wrap(c.Index + n)
	return c
}

func (c Carousel) Next() Carousel { return c.Advance(1) }

func (c Carousel) Prev() Carousel { return c.Advance(-1) }

// Visible returns the list positions currently shown, in display order.
// A list shorter than the window shows each item once.
func (c Carousel) Visible() []int {
	if c.Len <= 0 || c.Window <= 0 {
		return []int{}
	}
	n := c.Window
	if n > c.Len {
		n = c.Len
	}
	out := make([]int, n)
	for i := range out {
		out[i] = c.wrap(c.Index + i)
	}
	return out
}

// VisibleItems picks the visible items out of items.
func VisibleItems[T any](c Carousel, items []T) []T {
	idx := c.Visible()
	out := make([]T, 0, len(idx))
	for _, i := range idx {
		if i < len(items) {
			out = append(out, items[i])
		}
	}
	return out
}
