package pdfdoc

import (
	"strconv"

	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
)

// contentScanner walks a page content stream and records the geometry
// of stroked/filled paths and image placements. It tracks only what
// detection needs: the CTM, path construction operators, and Do calls
// on image XObjects. Text-showing operators are ignored since glyph
// positions come from the text extractor.
type contentScanner struct {
	pageHeight float64
	imageNames map[string]bool

	ctm      matrix
	ctmStack []matrix

	operands []float64
	lastName string

	// current path, in device space (bottom-origin)
	pathSegs  []LineSeg
	pathRects []geometry.Rect
	startX    float64
	startY    float64
	curX      float64
	curY      float64
	hasPoint  bool

	lines  []LineSeg
	rects  []geometry.Rect
	images []geometry.Rect
}

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identityMatrix = matrix{1, 0, 0, 1, 0, 0}

// mul returns m applied before n (PDF cm semantics: new = m x current).
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func newContentScanner(pageHeight float64, imageNames map[string]bool) *contentScanner {
	return &contentScanner{
		pageHeight: pageHeight,
		imageNames: imageNames,
		ctm:        identityMatrix,
	}
}

// scan tokenizes one content stream and dispatches its operators.
func (s *contentScanner) scan(data []byte) {
	pos := 0
	for pos < len(data) {
		c := data[pos]
		switch {
		case isWhitespace(c):
			pos++
		case c == '%':
			pos = skipComment(data, pos)
		case c == '(':
			pos = skipLiteralString(data, pos)
		case c == '<':
			if pos+1 < len(data) && data[pos+1] == '<' {
				pos = skipDictionary(data, pos)
			} else {
				pos = skipHexString(data, pos)
			}
		case c == '[' || c == ']' || c == '{' || c == '}':
			pos++
		case c == '/':
			var name string
			name, pos = readName(data, pos)
			s.lastName = name
		case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
			var num float64
			var ok bool
			num, pos, ok = readNumber(data, pos)
			if ok {
				s.operands = append(s.operands, num)
			}
		default:
			var op string
			op, pos = readOperator(data, pos)
			if op == "BI" {
				pos = skipInlineImage(data, pos)
				s.reset()
				continue
			}
			s.dispatch(op)
		}
	}
}

func (s *contentScanner) reset() {
	s.operands = s.operands[:0]
	s.lastName = ""
}

//nolint:gocyclo // flat operator switch, one case per PDF operator
func (s *contentScanner) dispatch(op string) {
	defer s.reset()

	switch op {
	case "q":
		s.ctmStack = append(s.ctmStack, s.ctm)
	case "Q":
		if n := len(s.ctmStack); n > 0 {
			s.ctm = s.ctmStack[n-1]
			s.ctmStack = s.ctmStack[:n-1]
		}
	case "cm":
		if len(s.operands) >= 6 {
			m := matrix{}
			copy(m[:], s.operands[len(s.operands)-6:])
			s.ctm = m.mul(s.ctm)
		}
	case "m":
		if len(s.operands) >= 2 {
			x, y := s.takePoint()
			s.startX, s.startY = x, y
			s.curX, s.curY = x, y
			s.hasPoint = true
		}
	case "l":
		if len(s.operands) >= 2 && s.hasPoint {
			x, y := s.takePoint()
			s.pathSegs = append(s.pathSegs, LineSeg{X0: s.curX, Y0: s.curY, X1: x, Y1: y})
			s.curX, s.curY = x, y
		}
	case "c":
		if len(s.operands) >= 6 && s.hasPoint {
			x, y := s.takePoint()
			s.pathSegs = append(s.pathSegs, LineSeg{X0: s.curX, Y0: s.curY, X1: x, Y1: y})
			s.curX, s.curY = x, y
		}
	case "v", "y":
		if len(s.operands) >= 4 && s.hasPoint {
			x, y := s.takePoint()
			s.pathSegs = append(s.pathSegs, LineSeg{X0: s.curX, Y0: s.curY, X1: x, Y1: y})
			s.curX, s.curY = x, y
		}
	case "h":
		if s.hasPoint {
			s.pathSegs = append(s.pathSegs, LineSeg{X0: s.curX, Y0: s.curY, X1: s.startX, Y1: s.startY})
			s.curX, s.curY = s.startX, s.startY
		}
	case "re":
		if len(s.operands) >= 4 {
			n := len(s.operands)
			x, y := s.operands[n-4], s.operands[n-3]
			w, h := s.operands[n-2], s.operands[n-1]
			x0, y0 := s.ctm.apply(x, y)
			x1, y1 := s.ctm.apply(x+w, y+h)
			s.pathRects = append(s.pathRects, geometry.NewRect(x0, y0, x1, y1))
			s.startX, s.startY = x0, y0
			s.curX, s.curY = x0, y0
			s.hasPoint = true
		}
	case "S", "s", "f", "F", "f*", "B", "B*", "b", "b*":
		s.commitPath()
	case "n":
		s.dropPath()
	case "Do":
		if s.lastName != "" && s.imageNames[s.lastName] {
			// The image occupies the CTM-mapped unit square.
			x0, y0 := s.ctm.apply(0, 0)
			x1, y1 := s.ctm.apply(1, 1)
			s.images = append(s.images, s.toTopOrigin(geometry.NewRect(x0, y0, x1, y1)))
		}
	}
}

// takePoint transforms the trailing operand pair through the CTM; for
// curve operators the trailing pair is the segment endpoint.
func (s *contentScanner) takePoint() (float64, float64) {
	l := len(s.operands)
	return s.ctm.apply(s.operands[l-2], s.operands[l-1])
}

func (s *contentScanner) commitPath() {
	for _, seg := range s.pathSegs {
		s.lines = append(s.lines, LineSeg{
			X0: seg.X0, Y0: s.pageHeight - seg.Y0,
			X1: seg.X1, Y1: s.pageHeight - seg.Y1,
		})
	}
	for _, r := range s.pathRects {
		s.rects = append(s.rects, s.toTopOrigin(r))
	}
	s.dropPath()
}

func (s *contentScanner) dropPath() {
	s.pathSegs = s.pathSegs[:0]
	s.pathRects = s.pathRects[:0]
	s.hasPoint = false
}

func (s *contentScanner) toTopOrigin(r geometry.Rect) geometry.Rect {
	return geometry.NewRect(r.X0, s.pageHeight-r.Y1, r.X1, s.pageHeight-r.Y0)
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func skipComment(data []byte, pos int) int {
	for pos < len(data) && data[pos] != '\n' && data[pos] != '\r' {
		pos++
	}
	return pos
}

func skipLiteralString(data []byte, pos int) int {
	depth := 0
	for pos < len(data) {
		switch data[pos] {
		case '\\':
			pos++ // skip escaped byte
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return pos + 1
			}
		}
		pos++
	}
	return pos
}

func skipHexString(data []byte, pos int) int {
	for pos < len(data) && data[pos] != '>' {
		pos++
	}
	if pos < len(data) {
		pos++
	}
	return pos
}

func skipDictionary(data []byte, pos int) int {
	depth := 0
	for pos+1 < len(data) {
		if data[pos] == '<' && data[pos+1] == '<' {
			depth++
			pos += 2
			continue
		}
		if data[pos] == '>' && data[pos+1] == '>' {
			depth--
			pos += 2
			if depth == 0 {
				return pos
			}
			continue
		}
		pos++
	}
	return len(data)
}

// skipInlineImage advances past BI ... ID <binary> EI.
func skipInlineImage(data []byte, pos int) int {
	// find ID
	for pos+1 < len(data) {
		if data[pos] == 'I' && data[pos+1] == 'D' {
			pos += 2
			break
		}
		pos++
	}
	// find EI at a token boundary
	for pos+1 < len(data) {
		if data[pos] == 'E' && data[pos+1] == 'I' &&
			(pos == 0 || isWhitespace(data[pos-1])) &&
			(pos+2 >= len(data) || isWhitespace(data[pos+2]) || isDelimiter(data[pos+2])) {
			return pos + 2
		}
		pos++
	}
	return len(data)
}

func readName(data []byte, pos int) (string, int) {
	pos++ // leading slash
	start := pos
	for pos < len(data) && !isWhitespace(data[pos]) && !isDelimiter(data[pos]) {
		pos++
	}
	return string(data[start:pos]), pos
}

func readNumber(data []byte, pos int) (float64, int, bool) {
	start := pos
	if data[pos] == '+' || data[pos] == '-' {
		pos++
	}
	for pos < len(data) && (data[pos] == '.' || (data[pos] >= '0' && data[pos] <= '9')) {
		pos++
	}
	num, err := strconv.ParseFloat(string(data[start:pos]), 64)
	if err != nil {
		return 0, pos, false
	}
	return num, pos, true
}

func readOperator(data []byte, pos int) (string, int) {
	start := pos
	for pos < len(data) && !isWhitespace(data[pos]) && !isDelimiter(data[pos]) {
		pos++
	}
	if pos == start {
		// Lone delimiter we do not handle; step over it.
		return "", pos + 1
	}
	return string(data[start:pos]), pos
}
