package cmd

import (
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"

	"github.com/abe-nagisa/tacozip/tacozip"
)

// options turns the merged flag, env and file configuration into Archiver
// options.
func (a *app) options() ([]tacozip.Option, error) {
	var method uint16
	switch m := strings.ToLower(a.v.GetString("method")); m {
	case "store", "":
		method = tacozip.Store
	case "deflate":
		method = tacozip.Deflate
	default:
		return nil, errors.Errorf("unknown method %q", m)
	}
	return []tacozip.Option{
		tacozip.WithBufferSize(a.v.GetInt("buffer-size")),
		tacozip.WithMethod(method),
		tacozip.WithLevel(a.v.GetInt("level")),
		tacozip.WithUTF8(a.v.GetBool("utf8")),
		tacozip.WithPreallocate(a.v.GetBool("preallocate")),
		tacozip.WithLock(a.v.GetBool("lock")),
	}, nil
}

func (a *app) archiver() (*tacozip.Archiver, error) {
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	return tacozip.New(opts...)
}

// parsePointers pairs comma separated offsets and lengths.
func parsePointers(offsets, lengths []string) (tacozip.PointerArray, error) {
	offs, err := parseUints(offsets)
	if err != nil {
		return tacozip.PointerArray{}, errors.Wrap(err, "offsets")
	}
	lens, err := parseUints(lengths)
	if err != nil {
		return tacozip.PointerArray{}, errors.Wrap(err, "lengths")
	}
	return tacozip.PointersFromSlices(offs, lens)
}

func parseUints(ss []string) ([]uint64, error) {
	out := make([]uint64, 0, len(ss))
	for _, s := range ss {
		n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func expandPath(path string) (string, error) {
	p, err := homedir.Expand(path)
	return p, errors.Wrapf(err, "expand %s", path)
}
