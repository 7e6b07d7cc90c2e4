package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openrelayxyz/cardinal-ldb"
	"github.com/openrelayxyz/cardinal-ldb/db/mem"
)

func runTool(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	if err := run(args, strings.NewReader(stdin), &stdout, &stderr); err != nil {
		t.Fatalf("ldbtool %v: %v\n%v", args, err, stderr.String())
	}
	return stdout.String()
}

func TestPutGetDelete(t *testing.T) {
	defer mem.Destroy("tool-basic")
	runTool(t, "", "put", "-d", "mem://tool-basic", "Hello", "0x576f726c64")
	if out := runTool(t, "", "get", "-d", "mem://tool-basic", "Hello", "--raw"); out != "World" {
		t.Errorf("Unexpected raw value %q", out)
	}
	if out := runTool(t, "", "get", "-d", "mem://tool-basic", "0x48656c6c6f"); out != "0x576f726c64\n" {
		t.Errorf("Unexpected hex value %q", out)
	}
	runTool(t, "", "delete", "-d", "mem://tool-basic", "Hello")
	var stdout, stderr bytes.Buffer
	if err := run([]string{"get", "-d", "mem://tool-basic", "Hello"}, strings.NewReader(""), &stdout, &stderr); err == nil {
		t.Errorf("Expected get of deleted key to fail")
	}
	runTool(t, "", "compact", "-d", "mem://tool-basic")
}

func TestDumpLoad(t *testing.T) {
	defer mem.Destroy("tool-src")
	defer mem.Destroy("tool-dst")
	keys := []string{"Hello", "Yellow", "Mellow"}
	values := []string{"World", "Furled", "Burled"}
	for i := range keys {
		runTool(t, "", "put", "-d", "mem://tool-src", keys[i], values[i])
	}
	avroData := runTool(t, "Hello\nYellow\nMissing\n0x4d656c6c6f77\n", "dump", "-d", "mem://tool-src")
	file := filepath.Join(t.TempDir(), "records.avro")
	if err := os.WriteFile(file, []byte(avroData), 0644); err != nil {
		t.Fatal(err)
	}
	runTool(t, "", "load", "-d", "mem://tool-dst", "--batch-size", "2", file)
	for i := range keys {
		if out := runTool(t, "", "get", "-d", "mem://tool-dst", "--raw", keys[i]); out != values[i] {
			t.Errorf("Unexpected value for %v: %q", keys[i], out)
		}
	}
}

func TestConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "ldb.toml")
	data := "create-if-missing = false\ncompression = \"none\"\nblock-size = 8192\n"
	if err := os.WriteFile(file, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(file)
	if err != nil {
		t.Fatal(err)
	}
	opts, err := cfg.Options()
	if err != nil {
		t.Fatal(err)
	}
	if opts.CreateIfMissing || opts.Compression != ldb.NoCompression || opts.BlockSize != 8192 {
		t.Errorf("Unexpected options %+v", opts)
	}
	if opts.MaxOpenFiles != ldb.DefaultOptions().MaxOpenFiles {
		t.Errorf("Expected unset fields to keep defaults")
	}
	var stdout, stderr bytes.Buffer
	missing := filepath.Join(t.TempDir(), "missing")
	if err := run([]string{"put", "-d", missing, "--config", file, "a", "b"}, strings.NewReader(""), &stdout, &stderr); err == nil {
		t.Errorf("Expected open without create-if-missing to fail")
	}
	if _, err := (&Config{Compression: "lz4"}).Options(); err == nil {
		t.Errorf("Expected unknown compression to fail")
	}
}
