// Command msghash computes StarkEx message hashes and serves them over HTTP.
//
// # Configuration File
//
//	datadir: /var/lib/msghash
//	http_addr: ":8080"
//	log_level: info
//
// # Usage
//
//	msghash transfer transfer.json      hash a transfer request ("-" reads stdin)
//	msghash order order.json            hash a limit order request
//	msghash pubkey <priv>               derive the stark key of a private key
//	msghash sign <priv> <hash>          sign a message hash
//	msghash verify <key> <hash> <r> <s> verify a signature
//	msghash --config=msghash.yaml serve run the HTTP service
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/ethereum/go-ethereum/common/hexutil"
	msghash "github.com/vocdoni/starkex-msghash-go"
	"github.com/vocdoni/starkex-msghash-go/api"
	"github.com/vocdoni/starkex-msghash-go/capi"
	"github.com/vocdoni/starkex-msghash-go/registry"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		dataDir    = flag.String("datadir", "", "Registry data directory")
		addr       = flag.String("addr", "", "HTTP listen address")
		logLevel   = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: msghash [flags] transfer|order|pubkey|sign|verify|serve [args]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg, *dataDir, *addr, *logLevel)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, flag.Args(), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(int(capi.StatusFromError(err)) + 1)
	}
}

func loadConfiguration(configPath string) (*Config, error) {
	if configPath != "" {
		return LoadConfig(configPath)
	}
	return DefaultConfig(), nil
}

func applyFlagOverrides(cfg *Config, dataDir, addr, logLevel string) {
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if addr != "" {
		cfg.HTTPAddr = addr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
}

func run(cfg *Config, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		flag.Usage()
		return errors.New("missing command")
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "transfer":
		return hashCommand(args, stdin, stdout, func(data []byte) (fp.Element, error) {
			req, err := msghash.DecodeTransferRequest(data)
			if err != nil {
				return fp.Element{}, err
			}
			return req.Hash()
		})
	case "order":
		return hashCommand(args, stdin, stdout, func(data []byte) (fp.Element, error) {
			req, err := msghash.DecodeLimitOrderRequest(data)
			if err != nil {
				return fp.Element{}, err
			}
			return req.Hash()
		})
	case "pubkey":
		if len(args) != 1 {
			return errors.New("usage: pubkey <private key hex>")
		}
		priv, err := parseScalar(args[0])
		if err != nil {
			return err
		}
		key, err := msghash.PublicKey(priv)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, hexutil.EncodeBig(key))
		return nil
	case "sign":
		if len(args) != 2 {
			return errors.New("usage: sign <private key hex> <message hash hex>")
		}
		return signCommand(args[0], args[1], stdout)
	case "verify":
		if len(args) != 4 {
			return errors.New("usage: verify <stark key> <message hash> <r> <s>")
		}
		return verifyCommand(args, stdout)
	case "serve":
		return serve(cfg)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func hashCommand(args []string, stdin io.Reader, stdout io.Writer, hash func([]byte) (fp.Element, error)) error {
	if len(args) != 1 {
		return errors.New("expected one input file, or - for stdin")
	}
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}
	digest, err := hash(data)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, msghash.FeltToHash(&digest).Hex())
	return nil
}

func signCommand(privHex, hashHex string, stdout io.Writer) error {
	priv, err := parseScalar(privHex)
	if err != nil {
		return err
	}
	digest, err := msghash.ParseHex(hashHex)
	if err != nil {
		return err
	}
	sig, err := msghash.Sign(priv, msghash.FeltToBig(&digest), nil)
	if err != nil {
		return err
	}
	out, err := sig.MarshalJSON()
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, string(out))
	return nil
}

func verifyCommand(args []string, stdout io.Writer) error {
	values := make([]*big.Int, len(args))
	for i, a := range args {
		e, err := msghash.ParseHex(a)
		if err != nil {
			return err
		}
		values[i] = msghash.FeltToBig(&e)
	}
	ok, err := msghash.Verify(values[0], values[1], msghash.Signature{R: values[2], S: values[3]})
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, ok)
	if !ok {
		return msghash.ErrInvalidSignature
	}
	return nil
}

// parseScalar parses a hex private key. Keys are curve scalars, so the
// field range check of ParseHex is not applied.
func parseScalar(s string) (*big.Int, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok || v.Sign() < 0 {
		return nil, msghash.ErrInvalidNumeral
	}
	return v, nil
}

func serve(cfg *Config) error {
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var reg *registry.Registry
	if cfg.DataDir != "" {
		reg, err = registry.NewWithPebble(cfg.DataDir, log)
	} else {
		reg, err = registry.New(nil, log)
	}
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer reg.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewHandler(reg, log).NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening", "addr", cfg.HTTPAddr, "entries", reg.Size())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
