// internal/xspec/loader.go
package xspec

import (
	"os"
	"path/filepath"
	"strings"

	"xga-core/source"
	"xga-core/storekey"
)

// resultSuffix marks fit-output files in the shared output directory:
// <safeName>_<storageKey>_<model>_xspec.txt
const resultSuffix = "_xspec.txt"

// Loader rediscovers previously written fit-output files and re-attaches
// their records to a source. It satisfies the discovery hook on Source.
type Loader struct{}

// decodeResultName splits a fit-output filename into storage key and model.
// The storage key is recognised structurally (it starts at the "ra" token);
// everything after it, up to the suffix, is the model name.
func decodeResultName(name, safeName string) (storageKey, model string, ok bool) {
	if !strings.HasSuffix(name, resultSuffix) {
		return "", "", false
	}
	base := strings.TrimSuffix(name, resultSuffix)
	if !strings.HasPrefix(base, safeName+"_") {
		return "", "", false
	}
	toks := strings.Split(strings.TrimPrefix(base, safeName+"_"), "_")

	key, n, keyOK := storekey.ParseSpectrumKey(toks)
	if !keyOK || n >= len(toks) {
		return "", "", false
	}
	return key.Encode(), strings.Join(toks[n:], "_"), true
}

// Load scans dir for fit-output files belonging to the source, parses them
// and stores their records. When several files carry the same (storage key,
// model) pair, the one from the preferred instrument wins: PN, then MOS2,
// then MOS1.
func (Loader) Load(s *source.Source, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	safeName := storekey.SafeSourceName(s.Name())

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, _, ok := decodeResultName(e.Name(), safeName)
		if !ok {
			continue
		}
		f, err := os.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		res, perr := Parse(f)
		f.Close()
		if perr != nil {
			return perr
		}
		rec := res.Record()
		if prev, ok := s.Fits().Get(key, rec.Model); ok {
			if source.PreferInstrument([]string{prev.Inst, rec.Inst}) == prev.Inst {
				continue
			}
		}
		s.Fits().Set(key, rec)
	}
	return nil
}
