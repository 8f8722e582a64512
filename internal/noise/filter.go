package noise

import "github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"

// FilterChars drops the characters that fall inside confirmed noise
// zones. Vertical zones test the character's top edge, horizontal
// zones its left edge, matching how the zones were measured. The
// returned count is exact so the pipeline's character accounting
// balances.
func FilterChars(chars []pdfdoc.Char, zones *Zones) (kept []pdfdoc.Char, removed int) {
	if zones.IsEmpty() {
		return chars, 0
	}
	kept = make([]pdfdoc.Char, 0, len(chars))
	for _, c := range chars {
		if inNoiseZone(c, zones) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	return kept, removed
}

func inNoiseZone(c pdfdoc.Char, zones *Zones) bool {
	if zones.Header != nil && zones.Header.Contains(c.Top) {
		return true
	}
	if zones.Footer != nil && zones.Footer.Contains(c.Top) {
		return true
	}
	if zones.Left != nil && zones.Left.Contains(c.X) {
		return true
	}
	if zones.Right != nil && zones.Right.Contains(c.X) {
		return true
	}
	return false
}
