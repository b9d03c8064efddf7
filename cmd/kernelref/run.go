package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/born-ml/kernelref/internal/ops"
	"github.com/born-ml/kernelref/internal/wire"
)

// errRunFailed marks a request that decoded but whose operator failed; the
// response carrying the error has already been written.
var errRunFailed = errors.New("operator failed")

func runCommand(ctx context.Context, args []string, backend ops.Backend, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	requestPath := fs.String("request", "-", "Request file, - for stdin")
	format := fs.String("format", "", "Request format: cbor or json (default: by file extension)")
	outPath := fs.String("out", "-", "Response file, - for stdout")
	outFormat := fs.String("out-format", "json", "Response format: cbor or json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	inFmt, err := requestFormat(*format, *requestPath)
	if err != nil {
		return err
	}
	respFmt, err := wire.ParseFormat(*outFormat)
	if err != nil {
		return err
	}

	in := stdin
	if *requestPath != "-" {
		f, err := os.Open(*requestPath)
		if err != nil {
			return errors.Wrap(err, "open request")
		}
		defer f.Close()
		in = f
	}

	req, err := wire.DecodeRequest(inFmt, in)
	if err != nil {
		return errors.WithMessage(err, "decode request")
	}

	registry := ops.NewRegistry(backend, ops.WithLogger(log.Logger))
	resp, runErr := dispatch(ctx, registry, req)

	out := stdout
	if *outPath != "-" {
		f, err := os.Create(*outPath)
		if err != nil {
			return errors.Wrap(err, "create response")
		}
		defer f.Close()
		out = f
	}
	if err := respFmt.Encode(out, resp); err != nil {
		return errors.Wrap(err, "encode response")
	}
	if runErr != nil {
		return errors.Wrapf(errRunFailed, "%s: %v", req.Op, runErr)
	}
	return nil
}

// requestFormat returns the explicit format, or guesses it from a .cbor
// extension.
func requestFormat(name, path string) (wire.Format, error) {
	if name != "" {
		return wire.ParseFormat(name)
	}
	if filepath.Ext(path) == ".cbor" {
		return wire.CBOR, nil
	}
	return wire.JSON, nil
}

// dispatch runs req and builds its response. A failed run still yields a
// response describing the error.
func dispatch(ctx context.Context, registry *ops.Registry, req *wire.Request) (*wire.Response, error) {
	inputs, err := req.RawInputs()
	if err != nil {
		return &wire.Response{Error: err.Error(), Kind: kindOf(err)}, err
	}
	out, err := registry.Run(ctx, req.Op, inputs, ops.Attrs(req.Attrs))
	if err != nil {
		return &wire.Response{Error: err.Error(), Kind: kindOf(err)}, err
	}
	return wire.NewResponse(out), nil
}

// kindOf extends ops.Kind with wire errors.
func kindOf(err error) string {
	if errors.Is(err, wire.ErrMalformed) {
		return "malformed"
	}
	return ops.Kind(err)
}
