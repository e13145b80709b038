package remover

import (
	"context"
	"image"
	"image/draw"

	"github.com/lambda-feedback/bgstrip/imaging"
)

// Builtin keys out the background connected to the image border. It
// works well for product shots and scans on a roughly uniform backdrop
// and needs no external model.
type Builtin struct {
	config BuiltinConfig
}

var _ Remover = (*Builtin)(nil)

func NewBuiltin(config BuiltinConfig) *Builtin {
	return &Builtin{config: config}
}

func (b *Builtin) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := imaging.ToNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()

	if w == 0 || h == 0 {
		return src, nil
	}

	probe := imaging.ToNRGBA(imaging.FitWithin(src, b.config.MaskSize))

	mask, err := b.mask(ctx, probe)
	if err != nil {
		return nil, err
	}

	mask = toGray(imaging.Resample(mask, w, h))

	out := image.NewNRGBA(src.Rect)
	copy(out.Pix, src.Pix)

	for y := 0; y < h; y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+w*4]
		maskRow := mask.Pix[y*mask.Stride : y*mask.Stride+w]

		for x := 0; x < w; x++ {
			a := uint32(row[x*4+3]) * uint32(maskRow[x]) / 0xff
			row[x*4+3] = uint8(a)
		}
	}

	return out, nil
}

// mask returns an opaque-foreground mask of img: 0 for background
// connected to the border, 0xff for everything else.
func (b *Builtin) mask(ctx context.Context, img *image.NRGBA) (*image.Gray, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()

	bg := borderColor(img)
	tol := b.config.Tolerance

	isBackground := func(x, y int) bool {
		i := y*img.Stride + x*4
		p := img.Pix[i : i+4 : i+4]

		if p[3] == 0 {
			return true
		}

		return absDiff(p[0], bg[0]) <= tol &&
			absDiff(p[1], bg[1]) <= tol &&
			absDiff(p[2], bg[2]) <= tol
	}

	mask := image.NewGray(image.Rect(0, 0, w, h))
	for i := range mask.Pix {
		mask.Pix[i] = 0xff
	}

	visited := make([]bool, w*h)
	queue := make([]int, 0, 2*(w+h))

	push := func(x, y int) {
		i := y*w + x
		if visited[i] {
			return
		}
		visited[i] = true

		if isBackground(x, y) {
			mask.Pix[y*mask.Stride+x] = 0
			queue = append(queue, i)
		}
	}

	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for n := 0; len(queue) > 0; n++ {
		if n%65536 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		x, y := i%w, i/w

		if x > 0 {
			push(x-1, y)
		}
		if x < w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < h-1 {
			push(x, y+1)
		}
	}

	if b.config.Feather > 0 {
		mask = boxBlur(mask, b.config.Feather)
	}

	return mask, nil
}

// borderColor returns the dominant colour of the border pixels. Colours
// are bucketed at 4 bits per channel and the mean of the largest bucket
// is returned.
func borderColor(img *image.NRGBA) [3]int {
	w, h := img.Rect.Dx(), img.Rect.Dy()

	type bucket struct {
		n       int
		r, g, b int
	}

	buckets := make(map[uint16]*bucket)

	sample := func(x, y int) {
		i := y*img.Stride + x*4
		p := img.Pix[i : i+4 : i+4]

		if p[3] == 0 {
			return
		}

		key := uint16(p[0]>>4)<<8 | uint16(p[1]>>4)<<4 | uint16(p[2]>>4)

		bk, ok := buckets[key]
		if !ok {
			bk = &bucket{}
			buckets[key] = bk
		}

		bk.n++
		bk.r += int(p[0])
		bk.g += int(p[1])
		bk.b += int(p[2])
	}

	for x := 0; x < w; x++ {
		sample(x, 0)
		sample(x, h-1)
	}
	for y := 1; y < h-1; y++ {
		sample(0, y)
		sample(w-1, y)
	}

	var best *bucket
	var bestKey uint16

	for key, bk := range buckets {
		// ties go to the lower key so the result is deterministic
		if best == nil || bk.n > best.n || (bk.n == best.n && key < bestKey) {
			best, bestKey = bk, key
		}
	}

	if best == nil {
		// fully transparent border, only alpha keys
		return [3]int{-0x100, -0x100, -0x100}
	}

	return [3]int{best.r / best.n, best.g / best.n, best.b / best.n}
}

// boxBlur applies a separable box blur of the given radius.
func boxBlur(src *image.Gray, radius int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()

	tmp := image.NewGray(src.Rect)
	dst := image.NewGray(src.Rect)

	blur1D := func(get func(int) uint8, set func(int, uint8), n int) {
		var sum, count int

		for i := 0; i < radius && i < n; i++ {
			sum += int(get(i))
			count++
		}

		for i := 0; i < n; i++ {
			if j := i + radius; j < n {
				sum += int(get(j))
				count++
			}
			if j := i - radius - 1; j >= 0 {
				sum -= int(get(j))
				count--
			}

			set(i, uint8((sum+count/2)/count))
		}
	}

	for y := 0; y < h; y++ {
		in := src.Pix[y*src.Stride:]
		out := tmp.Pix[y*tmp.Stride:]

		blur1D(
			func(i int) uint8 { return in[i] },
			func(i int, v uint8) { out[i] = v },
			w,
		)
	}

	for x := 0; x < w; x++ {
		blur1D(
			func(i int) uint8 { return tmp.Pix[i*tmp.Stride+x] },
			func(i int, v uint8) { dst.Pix[i*dst.Stride+x] = v },
			h,
		)
	}

	return dst
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}

	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Rect, img, b.Min, draw.Src)
	return g
}

func absDiff(a uint8, b int) int {
	d := int(a) - b
	if d < 0 {
		return -d
	}
	return d
}
