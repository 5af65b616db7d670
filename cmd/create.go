package cmd

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/abe-nagisa/tacozip/tacozip"
)

func (a *app) newCreateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "create -o out.zip [--offsets 1,2 --lengths 3,4] src[:name]...",
		Short: "Write a new archive with a ghost record",
		Long: `Write a new archive. Each source is a file path, optionally followed by
":name" to choose its name inside the archive. A directory source adds every
regular file below it, named relative to the directory's parent.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.create,
	}
	c.Flags().StringP("output", "o", "", "archive to write")
	c.Flags().StringSlice("offsets", nil, "initial ghost pointer offsets")
	c.Flags().StringSlice("lengths", nil, "initial ghost pointer lengths")
	return c
}

func (a *app) create(c *cobra.Command, args []string) error {
	out, err := c.Flags().GetString("output")
	if err != nil {
		return err
	}
	if out == "" {
		return errors.New("--output is required")
	}
	if out, err = expandPath(out); err != nil {
		return err
	}
	offsets, err := c.Flags().GetStringSlice("offsets")
	if err != nil {
		return err
	}
	lengths, err := c.Flags().GetStringSlice("lengths")
	if err != nil {
		return err
	}
	p, err := parsePointers(offsets, lengths)
	if err != nil {
		return err
	}

	var files []tacozip.Source
	for _, arg := range args {
		srcs, err := sources(arg)
		if err != nil {
			return err
		}
		files = append(files, srcs...)
	}

	ar, err := a.archiver()
	if err != nil {
		return err
	}
	a.log.INFO.Printf("writing %d files to %s (%s)", len(files), out, methodName(ar.Method()))
	if err := ar.Create(out, files, p); err != nil {
		return err
	}
	a.log.INFO.Printf("wrote %s with %d ghost pointers", out, p.Count())
	return nil
}

// sources expands one src[:name] argument.
func sources(arg string) ([]tacozip.Source, error) {
	src, name := arg, ""
	if i := strings.LastIndex(arg, ":"); i > 0 {
		src, name = arg[:i], arg[i+1:]
	}
	src, err := expandPath(src)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(src)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = filepath.Base(src)
	}
	if !fi.IsDir() {
		return []tacozip.Source{{Path: src, Name: name}}, nil
	}

	var out []tacozip.Source
	err = filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		out = append(out, tacozip.Source{Path: p, Name: path.Join(name, filepath.ToSlash(rel))})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", src)
	}
	return out, nil
}
