// Command ldbtool reads and writes single keys of a database, compacts it,
// and moves records in and out of it as avro files.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	log "github.com/inconshreveable/log15"
	"github.com/openrelayxyz/cardinal-ldb"
	"github.com/openrelayxyz/cardinal-ldb/resolver"
	"github.com/openrelayxyz/cardinal-types/hexutil"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config   string `help:"TOML file with database options." type:"path"`
	Sync     bool   `help:"Sync writes to disk before returning."`
	Verbose  bool   `short:"v" help:"Log debug output to stderr."`
	Location string `short:"d" required:"" help:"Database location, e.g. /data/db or badger:///data/db."`

	stdin  io.Reader `kong:"-"`
	stdout io.Writer `kong:"-"`
}

func (g *Globals) open() (*ldb.DB, error) {
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return resolver.Open(g.Location, opts)
}

func (g *Globals) writeOptions() *ldb.WriteOptions {
	return &ldb.WriteOptions{Sync: g.Sync}
}

type GetCmd struct {
	Key string `arg:"" help:"Key to read; 0x-prefixed keys are hex."`
	Raw bool   `help:"Print the value as is instead of hex."`
}

func (c *GetCmd) Run(g *Globals) error {
	key, err := decodeArg(c.Key)
	if err != nil {
		return err
	}
	db, err := g.open()
	if err != nil {
		return err
	}
	defer db.Close()
	found, err := db.ZeroCopyGet(key, nil, func(value []byte) error {
		if c.Raw {
			_, err := g.stdout.Write(value)
			return err
		}
		_, err := fmt.Fprintln(g.stdout, hexutil.Encode(value))
		return err
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("key %v not found", c.Key)
	}
	return nil
}

type PutCmd struct {
	Key   string `arg:"" help:"Key to write; 0x-prefixed keys are hex."`
	Value string `arg:"" help:"Value to write; 0x-prefixed values are hex."`
}

func (c *PutCmd) Run(g *Globals) error {
	key, err := decodeArg(c.Key)
	if err != nil {
		return err
	}
	value, err := decodeArg(c.Value)
	if err != nil {
		return err
	}
	db, err := g.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Put(key, value, g.writeOptions())
}

type DeleteCmd struct {
	Key string `arg:"" help:"Key to delete; 0x-prefixed keys are hex."`
}

func (c *DeleteCmd) Run(g *Globals) error {
	key, err := decodeArg(c.Key)
	if err != nil {
		return err
	}
	db, err := g.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Delete(key, g.writeOptions())
}

type CompactCmd struct {
	Start string `help:"First key of the range; empty for the beginning."`
	Limit string `help:"Key after the range; empty for the end."`
}

func (c *CompactCmd) Run(g *Globals) error {
	var start, limit []byte
	var err error
	if c.Start != "" {
		if start, err = decodeArg(c.Start); err != nil {
			return err
		}
	}
	if c.Limit != "" {
		if limit, err = decodeArg(c.Limit); err != nil {
			return err
		}
	}
	db, err := g.open()
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("Compacting", "location", g.Location)
	return db.CompactRange(start, limit)
}

type LoadCmd struct {
	File      string `arg:"" optional:"" help:"Avro record file; stdin when omitted." type:"path"`
	BatchSize int    `default:"10000" help:"Records per write batch."`
}

func (c *LoadCmd) Run(g *Globals) error {
	r := g.stdin
	if c.File != "" {
		f, err := os.Open(c.File)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	db, err := g.open()
	if err != nil {
		return err
	}
	defer db.Close()
	n, err := load(db, r, c.BatchSize, g.writeOptions())
	if err != nil {
		return err
	}
	log.Info("Load complete", "records", n)
	return nil
}

type DumpCmd struct{}

func (c *DumpCmd) Run(g *Globals) error {
	db, err := g.open()
	if err != nil {
		return err
	}
	defer db.Close()
	n, err := dump(db, g.stdin, g.stdout)
	if err != nil {
		return err
	}
	log.Info("Dump complete", "records", n)
	return nil
}

type CLI struct {
	Globals

	Get     GetCmd     `cmd:"" help:"Print the value stored at a key."`
	Put     PutCmd     `cmd:"" help:"Store a value at a key."`
	Delete  DeleteCmd  `cmd:"" help:"Remove a key."`
	Compact CompactCmd `cmd:"" help:"Compact a key range."`
	Load    LoadCmd    `cmd:"" help:"Write the records of an avro file."`
	Dump    DumpCmd    `cmd:"" help:"Write the records for the keys listed on stdin as avro to stdout."`
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("ldbtool"),
		kong.Description("Inspect and modify a key/value database."),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	level := log.LvlInfo
	if cli.Verbose {
		level = log.LvlDebug
	}
	log.Root().SetHandler(log.LvlFilterHandler(level, log.StreamHandler(stderr, log.TerminalFormat())))
	cli.stdin = stdin
	cli.stdout = stdout
	return ctx.Run(&cli.Globals)
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		log.Error("ldbtool failed", "err", err)
		os.Exit(1)
	}
}
