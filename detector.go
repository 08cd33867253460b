package secokv

import "crypto/sha256"

type fingerprint [sha256.Size]byte

func sum(plain []byte) fingerprint {
	return sha256.Sum256(plain)
}

// changeDetector remembers the fingerprint of the last payload known to be on
// disk. The baseline only moves through commit, which callers invoke after
// a write has succeeded.
type changeDetector struct {
	last fingerprint
	set  bool
}

// shouldWrite fingerprints the serialized document and reports whether it
// differs from the baseline. It does not move the baseline.
func (d *changeDetector) shouldWrite(plain []byte) (fingerprint, bool) {
	fp := sum(plain)
	return fp, !d.set || fp != d.last
}

func (d *changeDetector) commit(fp fingerprint) {
	d.last = fp
	d.set = true
}

func (d *changeDetector) reset() {
	*d = changeDetector{}
}
