package atlasengine

import "sort"

// PackedRect is a photo placed at a pixel rectangle in atlas-local
// coordinates, padding already applied.
type PackedRect struct {
	ID   PhotoRef
	Rect Rect
}

// PackInput is one rectangle to place, before padding.
type PackInput struct {
	ID            PhotoRef
	Width, Height int
}

// PackResult is the outcome of a single packer.Pack call.
type PackResult struct {
	Packed      []PackedRect
	Failed      []PackInput
	Utilization float64
}

// shelf is one open row of the packer: a fixed y origin, a height equal to
// its tallest padded occupant, and a running x cursor.
type shelf struct {
	yOrigin int
	height  int
	xCursor int
}

// Pack places inputs into a fixed atlasSize×atlasSize canvas using
// first-fit shelf packing. Pack is a pure function of its
// inputs: inputs are stable-sorted by height descending (width descending
// as a tie-break) before placement, so identical input sequences always
// produce identical PackedRect orderings.
func Pack(inputs []PackInput, atlasSize Size) PackResult {
	size := int(atlasSize)

	ordered := append([]PackInput(nil), inputs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Height != ordered[j].Height {
			return ordered[i].Height > ordered[j].Height
		}
		return ordered[i].Width > ordered[j].Width
	})

	var shelves []shelf
	var packed []PackedRect
	var failed []PackInput
	var innerArea int64

	for _, in := range ordered {
		iw := in.Width + 2*atlasPadding
		ih := in.Height + 2*atlasPadding

		placedShelf := -1
		for i := range shelves {
			if ih <= shelves[i].height && shelves[i].xCursor+iw <= size {
				placedShelf = i
				break
			}
		}

		if placedShelf == -1 {
			// Open a new shelf if the new row still fits vertically.
			yOrigin := 0
			for _, s := range shelves {
				yOrigin += s.height
			}
			if yOrigin+ih <= size && iw <= size {
				shelves = append(shelves, shelf{yOrigin: yOrigin, height: ih, xCursor: 0})
				placedShelf = len(shelves) - 1
			}
		}

		if placedShelf == -1 {
			failed = append(failed, in)
			continue
		}

		s := &shelves[placedShelf]
		xOrigin := s.xCursor
		s.xCursor += iw

		rect := Rect{
			X:      xOrigin + atlasPadding,
			Y:      s.yOrigin + atlasPadding,
			Width:  in.Width,
			Height: in.Height,
		}
		packed = append(packed, PackedRect{ID: in.ID, Rect: rect})
		innerArea += rect.Area()
	}

	atlasArea := int64(size) * int64(size)
	var utilization float64
	if atlasArea > 0 {
		utilization = float64(innerArea) / float64(atlasArea)
	}

	return PackResult{Packed: packed, Failed: failed, Utilization: utilization}
}

// FitsShelves simulates shelf packing using only heights (no x-axis
// tracking) to pre-check whether a tentative group of photos fits within
// atlasSize before committing to a full Pack call — the "shelf-feasibility
// pre-check" used by the distributor.
func FitsShelves(heights []int, atlasSize Size) bool {
	size := int(atlasSize)

	ordered := append([]int(nil), heights...)
	sort.Sort(sort.Reverse(sort.IntSlice(ordered)))

	var shelves []shelf
	for _, h := range ordered {
		ih := h + 2*atlasPadding
		placedShelf := -1
		for i := range shelves {
			// Heights-only check: treat each shelf as infinitely wide here;
			// the real Pack call enforces the x-axis. This mirrors Pack's
			// shelf height bookkeeping only.
			if ih <= shelves[i].height {
				placedShelf = i
				break
			}
		}
		if placedShelf == -1 {
			yOrigin := 0
			for _, s := range shelves {
				yOrigin += s.height
			}
			if yOrigin+ih > size {
				return false
			}
			shelves = append(shelves, shelf{yOrigin: yOrigin, height: ih})
		}
	}

	if len(shelves) == 0 {
		return true
	}
	last := shelves[len(shelves)-1]
	return last.yOrigin+last.height <= size
}
