// Package vision implements the raster-side primitives of visual
// element detection: gradient edge maps, binary dilation, connected
// component labelling, and straight-run ink profiles. All functions
// operate on grayscale images produced by the raster package.
package vision

import "image"

// EdgeMap returns a binary image marking pixels whose Sobel gradient
// magnitude exceeds threshold. Edges of ink regions survive, flat
// areas (background or solid fill interiors) do not.
func EdgeMap(src *image.Gray, threshold int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w < 3 || h < 3 {
		return out
	}

	at := func(x, y int) int { return int(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y) }

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) +
				-2*at(x-1, y) + 2*at(x+1, y) +
				-at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			if gx < 0 {
				gx = -gx
			}
			if gy < 0 {
				gy = -gy
			}
			if gx+gy > threshold {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// Dilate grows set pixels by a kw x kh rectangular kernel. Implemented
// as two 1-D passes, which is equivalent for box kernels.
func Dilate(src *image.Gray, kw, kh int) *image.Gray {
	if kw < 1 {
		kw = 1
	}
	if kh < 1 {
		kh = 1
	}
	hPass := dilatePass(src, kw/2, 0)
	return dilatePass(hPass, 0, kh/2)
}

func dilatePass(src *image.Gray, rx, ry int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if src.Pix[y*src.Stride+x] == 0 {
				continue
			}
			for dy := -ry; dy <= ry; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -rx; dx <= rx; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					out.Pix[yy*out.Stride+xx] = 255
				}
			}
		}
	}
	return out
}

// Components labels 8-connected regions of set pixels and returns
// their bounding boxes. The scratch queue is reused across rows to
// keep allocation flat on dense pages.
func Components(src *image.Gray) []image.Rectangle {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	visited := make([]bool, w*h)
	var boxes []image.Rectangle
	queue := make([]image.Point, 0, 1024)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if visited[y*w+x] || src.Pix[y*src.Stride+x] == 0 {
				continue
			}
			minX, minY, maxX, maxY := x, y, x, y
			queue = append(queue[:0], image.Point{X: x, Y: y})
			visited[y*w+x] = true
			for len(queue) > 0 {
				p := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				if p.X < minX {
					minX = p.X
				}
				if p.X > maxX {
					maxX = p.X
				}
				if p.Y < minY {
					minY = p.Y
				}
				if p.Y > maxY {
					maxY = p.Y
				}
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						if visited[ny*w+nx] || src.Pix[ny*src.Stride+nx] == 0 {
							continue
						}
						visited[ny*w+nx] = true
						queue = append(queue, image.Point{X: nx, Y: ny})
					}
				}
			}
			boxes = append(boxes, image.Rect(minX, minY, maxX+1, maxY+1))
		}
	}
	return boxes
}

// Density returns the fraction of set pixels within region.
func Density(src *image.Gray, region image.Rectangle) float64 {
	region = region.Intersect(src.Bounds())
	if region.Empty() {
		return 0
	}
	set := 0
	for y := region.Min.Y; y < region.Max.Y; y++ {
		row := src.Pix[y*src.Stride:]
		for x := region.Min.X; x < region.Max.X; x++ {
			if row[x] != 0 {
				set++
			}
		}
	}
	return float64(set) / float64(region.Dx()*region.Dy())
}

// RunProfile counts ink belonging to long straight runs inside region.
// A pixel counts toward the horizontal total when it sits in a
// contiguous horizontal run of at least minRun set pixels, and
// likewise for the vertical total. Ruled tables produce high counts on
// both axes; diagrams do not.
func RunProfile(src *image.Gray, region image.Rectangle, minRun int) (horizontal, vertical int) {
	region = region.Intersect(src.Bounds())
	if region.Empty() || minRun < 1 {
		return 0, 0
	}

	for y := region.Min.Y; y < region.Max.Y; y++ {
		run := 0
		for x := region.Min.X; x <= region.Max.X; x++ {
			if x < region.Max.X && src.Pix[y*src.Stride+x] != 0 {
				run++
				continue
			}
			if run >= minRun {
				horizontal += run
			}
			run = 0
		}
	}
	for x := region.Min.X; x < region.Max.X; x++ {
		run := 0
		for y := region.Min.Y; y <= region.Max.Y; y++ {
			if y < region.Max.Y && src.Pix[y*src.Stride+x] != 0 {
				run++
				continue
			}
			if run >= minRun {
				vertical += run
			}
			run = 0
		}
	}
	return horizontal, vertical
}
