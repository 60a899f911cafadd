package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	msghash "github.com/vocdoni/starkex-msghash-go"
)

func TestLoadConfig(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(t.TempDir(), "msghash.yaml")
	err := os.WriteFile(path, []byte("datadir: /tmp/reg\nlog_level: debug\n"), 0o600)
	c.Assert(err, qt.IsNil)

	cfg, err := LoadConfig(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.DataDir, qt.Equals, "/tmp/reg")
	c.Assert(cfg.HTTPAddr, qt.Equals, ":8080")
	c.Assert(cfg.LogLevel, qt.Equals, "debug")
	c.Assert(cfg.Validate(), qt.IsNil)

	applyFlagOverrides(cfg, "", "127.0.0.1:9000", "")
	c.Assert(cfg.HTTPAddr, qt.Equals, "127.0.0.1:9000")
	c.Assert(cfg.DataDir, qt.Equals, "/tmp/reg")

	cfg.LogLevel = "loud"
	c.Assert(cfg.Validate(), qt.ErrorMatches, `invalid log_level "loud"`)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	c.Assert(err, qt.ErrorMatches, "failed to read config file: .*")
}

func TestRunHashFromStdin(t *testing.T) {
	c := qt.New(t)

	in := strings.NewReader(`{"vault_id_sell":"21","vault_id_buy":"27",
		"amount_sell":"2154686749748910716","amount_buy":"1470242115489520459",
		"token_sell":"0x5fa3383597691ea9d827a79e1a4f0f7989c35ced18ca9619de8ab97e661020",
		"token_buy":"0x774961c824a3b0fb3d2965f01471c9c7734bf8dbde659e0c08dca2ef18d56a",
		"nonce":"0","expiration_timestamp":"438953"}`)
	var out bytes.Buffer
	err := run(DefaultConfig(), []string{"order", "-"}, in, &out)
	c.Assert(err, qt.IsNil)
	c.Assert(out.String(), qt.Equals, "0x0397e76d1667c4454bfb83514e120583af836f8e32a516765497823eabe16a3f\n")
}

func TestRunKeysAndSignatures(t *testing.T) {
	c := qt.New(t)

	var out bytes.Buffer
	c.Assert(run(DefaultConfig(), []string{"pubkey", "0x12"}, nil, &out), qt.IsNil)
	c.Assert(out.String(), qt.Equals, "0x19661066e96a8b9f06a1d136881ee924dfb6a885239caa5fd3f87a54c6b25c4\n")

	out.Reset()
	c.Assert(run(DefaultConfig(), []string{"verify",
		"0x1ef15c18599971b7beced415a40f0c7deacfd9b0d1819e03d723d8bc943cfca",
		"0x2",
		"0x411494b501a98abd8262b0da1351e17899a0c4ef23dd2f96fec5ba847310b20",
		"0x405c3191ab3883ef2b763af35bc5f5d15b3b4e99461d70e84c654a351a7c81b",
	}, nil, &out), qt.IsNil)
	c.Assert(out.String(), qt.Equals, "true\n")

	out.Reset()
	c.Assert(run(DefaultConfig(), []string{"sign", "0x12", "0x2"}, nil, &out), qt.IsNil)
	c.Assert(out.String(), qt.Matches, `\{"r":"0x[0-9a-f]+","s":"0x[0-9a-f]+"\}\n`)
}

func TestRunErrors(t *testing.T) {
	c := qt.New(t)

	var out bytes.Buffer
	err := run(DefaultConfig(), []string{"transfer", "-"}, strings.NewReader(`{"amount":"x"}`), &out)
	c.Assert(err, qt.IsNotNil)

	err = run(DefaultConfig(), []string{"pubkey", "0x0"}, nil, &out)
	c.Assert(err, qt.ErrorIs, msghash.ErrInvalidPrivateKey)

	err = run(DefaultConfig(), []string{"pubkey", "zz"}, nil, &out)
	c.Assert(err, qt.ErrorIs, msghash.ErrInvalidNumeral)

	err = run(DefaultConfig(), []string{"bogus"}, nil, &out)
	c.Assert(err, qt.ErrorMatches, `unknown command "bogus"`)
}
