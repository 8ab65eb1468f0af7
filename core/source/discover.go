// core/source/discover.go
package source

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"xga-core/products"
	"xga-core/storekey"
)

// FitLoader reloads previously stored spectral-fit tables during discovery.
// The zero case (nil) skips fit reloading entirely.
type FitLoader interface {
	Load(s *Source, dir string) error
}

// decoded is the outcome of parsing one product filename.
type decoded struct {
	obsID    string
	inst     string
	combined []string // contributing ObsIDs when the file is a merge
	kind     products.Kind

	loKeV, hiKeV float64
	hasEnergy    bool
	psf          *storekey.PSFKey
	specKey      storekey.SpectrumKey
	hasSpecKey   bool

	psfBins    int
	psfModel   string
	hasPSFGrid bool
}

// kind suffixes carried as the last filename token before the extension.
var kindTokens = map[string]products.Kind{
	"img":    products.KindImage,
	"expmap": products.KindExpMap,
	"events": products.KindEvents,
	"spec":   products.KindSpectrum,
	"psf":    products.KindPSF,
}

// decodeFilename parses an underscore-delimited product filename. Layout:
// <obs>_<inst>_<safeName>_<detail tokens...>_<kind>.fits where the obs token
// of a merged product is the sorted "-"-joined contributing ObsID list.
// Purely syntactic; unknown layouts return ok=false.
func decodeFilename(name, safeName string) (decoded, bool) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	toks := strings.Split(base, "_")
	if len(toks) < 4 {
		return decoded{}, false
	}

	var d decoded
	kind, ok := kindTokens[toks[len(toks)-1]]
	if !ok {
		return decoded{}, false
	}
	d.kind = kind
	toks = toks[:len(toks)-1]

	d.obsID = toks[0]
	d.inst = toks[1]
	if ids := storekey.ParseCombinedObsToken(d.obsID); len(ids) > 1 {
		d.combined = ids
		d.obsID = Combined
	}
	toks = toks[2:]

	// the safe source name may itself contain underscores; consume greedily
	nameToks := strings.Split(safeName, "_")
	if len(toks) < len(nameToks) || strings.Join(toks[:len(nameToks)], "_") != safeName {
		return decoded{}, false
	}
	toks = toks[len(nameToks):]

	for i := 0; i < len(toks); i++ {
		if lo, hi, ok := storekey.ParseEnergyKey(toks[i]); ok {
			d.loKeV, d.hiKeV, d.hasEnergy = lo, hi, true
			continue
		}
		if psf, ok := storekey.ParsePSFKey(toks[i:]); ok {
			d.psf = &psf
			i += 3
			continue
		}
		if bins, model, ok := storekey.ParsePSFGridKey(toks[i:]); ok {
			d.psfBins, d.psfModel, d.hasPSFGrid = bins, model, true
			i++
			continue
		}
		if key, n, ok := storekey.ParseSpectrumKey(toks[i:]); ok {
			d.specKey, d.hasSpecKey = key, true
			i += n - 1
			continue
		}
		return decoded{}, false
	}

	switch d.kind {
	case products.KindImage, products.KindExpMap:
		if !d.hasEnergy {
			return decoded{}, false
		}
	case products.KindSpectrum:
		if !d.hasSpecKey {
			return decoded{}, false
		}
	case products.KindPSF:
		if !d.hasPSFGrid {
			return decoded{}, false
		}
	}
	return d, true
}

// rebuild turns a decoded filename back into a product. Discovered files
// carry no generation diagnostics; usability reduces to path existence.
func rebuild(path string, d decoded) products.Product {
	switch d.kind {
	case products.KindImage:
		img := products.NewImage(path, d.obsID, d.inst, "", "", "", d.loKeV, d.hiKeV)
		img.PSF = d.psf
		return img
	case products.KindExpMap:
		return products.NewExpMap(path, d.obsID, d.inst, "", "", "", d.loKeV, d.hiKeV)
	case products.KindEvents:
		return products.NewEventList(path, d.obsID, d.inst, "", "", "")
	case products.KindSpectrum:
		return products.NewSpectrum(path, d.obsID, d.inst, "", "", "", d.specKey)
	case products.KindPSF:
		return products.NewPSFGrid(path, d.obsID, d.inst, "", "", "", d.psfBins, d.psfModel)
	}
	return nil
}

// DiscoverExisting scans an output directory for files generated by prior
// runs, reconstructs products from their filenames and re-inserts them.
// Merged products attach only when their embedded ObsID list exactly matches
// the source's current association set; a stale merge is left on disk and
// skipped. When a FitLoader is given, previously stored fit tables are
// reloaded afterwards. Returns the number of products attached.
func (s *Source) DiscoverExisting(dir string, loader FitLoader) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	safeName := storekey.SafeSourceName(s.name)

	attached := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		d, ok := decodeFilename(e.Name(), safeName)
		if !ok {
			continue
		}
		if d.combined != nil && !storekey.CombinedMatches(storekey.CombinedObsToken(d.combined), s.ObsIDs()) {
			slog.Debug("skipping stale merged product", "file", e.Name(), "source", s.name)
			continue
		}
		if d.combined == nil && !s.registry.Associated(d.obsID, d.inst) {
			continue
		}
		p := rebuild(filepath.Join(dir, e.Name()), d)
		if p == nil {
			continue
		}
		if err := s.AddProduct(p); err != nil {
			return attached, err
		}
		attached++
	}

	if loader != nil {
		if err := loader.Load(s, dir); err != nil {
			return attached, err
		}
	}
	return attached, nil
}
