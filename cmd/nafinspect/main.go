package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	naf "github.com/nafformat/naf-go"
)

var partFlags = map[string]naf.Flag{
	"title":    naf.FlagTitle,
	"ids":      naf.FlagID,
	"comments": naf.FlagComment,
	"lengths":  naf.FlagLength,
	"mask":     naf.FlagMask,
	"sequence": naf.FlagSequence,
	"quality":  naf.FlagQuality,
}

func main() {
	var (
		extractFlag, outputFlag string
		rawFlag, digestFlag     bool
		verboseFlag             bool
		jobsFlag                int
	)

	flag.StringVar(&extractFlag, "extract", "", "extract one part (title, ids, comments, lengths, mask, sequence or quality)")
	flag.StringVar(&outputFlag, "o", "-", "output filename for -extract")
	flag.BoolVar(&rawFlag, "raw", false, "write the extracted part without decompressing it")
	flag.BoolVar(&digestFlag, "digest", false, "print an xxh64 digest of every stored payload")
	flag.IntVar(&jobsFlag, "jobs", runtime.GOMAXPROCS(0), "number of archives inspected in parallel")
	flag.BoolVar(&verboseFlag, "v", false, "be verbose")

	flag.Parse()

	var err error
	var logger *zap.Logger
	if verboseFlag {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal("failed to initialize logger", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	paths := flag.Args()
	if len(paths) == 0 {
		logger.Fatal("at least one archive path is required")
	}

	if extractFlag != "" {
		if len(paths) != 1 {
			logger.Fatal("-extract works on a single archive", zap.Int("paths", len(paths)))
		}
		if err := extract(logger, paths[0], extractFlag, outputFlag, rawFlag); err != nil {
			logger.Fatal("failed to extract part", zap.String("part", extractFlag), zap.Error(err))
		}
		return
	}

	if jobsFlag < 1 {
		jobsFlag = 1
	}
	reports := make([]string, len(paths))
	errs := make([]error, len(paths))

	g := new(errgroup.Group)
	g.SetLimit(jobsFlag)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			reports[i], errs[i] = inspect(logger, path, digestFlag)
			return nil
		})
	}
	_ = g.Wait()

	var failed error
	for i, path := range paths {
		if errs[i] != nil {
			failed = multierr.Append(failed, fmt.Errorf("%s: %w", path, errs[i]))
			continue
		}
		fmt.Print(reports[i])
	}
	if failed != nil {
		logger.Fatal("failed to inspect archives", zap.Error(failed))
	}
}

func inspect(logger *zap.Logger, path string, digest bool) (_ string, err error) {
	a, err := naf.Open(path, naf.WithLogger(logger))
	if err != nil {
		return "", err
	}
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	hdr := a.Header()

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s %s archive, %d sequences\n",
		path, hdr.FormatVersion(), hdr.SequenceType(), hdr.NumberOfSequences())
	fmt.Fprintf(&b, "  line length: %d, name separator: %q\n",
		hdr.LineLength(), hdr.NameSeparator())
	if hdr.Flags().Test(naf.FlagTitle) {
		fmt.Fprintf(&b, "  title: %s\n", a.Title())
	}
	for _, s := range a.Sizes() {
		fmt.Fprintf(&b, "  %s\n", s)
	}

	if digest {
		for _, p := range a.Parts() {
			r, err := a.RawPart(p.Flag)
			if err != nil {
				return "", err
			}
			h := xxhash.New()
			if _, err := io.Copy(h, r); err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "  %s xxh64: %016x\n", p.Flag, h.Sum64())
		}
	}
	return b.String(), nil
}

func extract(logger *zap.Logger, path, part, output string, raw bool) (err error) {
	partFlag, ok := partFlags[part]
	if !ok {
		return fmt.Errorf("unknown part %q", part)
	}

	a, err := naf.Open(path, naf.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	out := os.Stdout
	if output != "-" {
		if out, err = os.OpenFile(output, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, out.Close())
		}()
	}

	if partFlag == naf.FlagTitle {
		if !a.Header().Flags().Test(naf.FlagTitle) {
			return errors.New("archive has no title")
		}
		_, err = io.WriteString(out, a.Title())
		return err
	}

	r, err := a.RawPart(partFlag)
	if err != nil {
		return err
	}
	if raw {
		_, err = io.Copy(out, r)
		return err
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer dec.Close()

	_, err = io.Copy(out, dec)
	return err
}
