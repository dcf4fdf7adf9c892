// Command embeddbcmd is a thin demo harness over the embeddb engine: put,
// putvar, get, getvar, and an iterate subcommand against a file-backed
// instance. It is a caller of the engine, not engine-internal code, and
// exercises Put/PutVar/Get/GetVar/Iterate against a real file the way a
// host application would.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"

	"github.com/flashkv/embeddb"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	dataFile := fs.String("data", "embeddb.data", "data region file")
	indexFile := fs.String("index", "embeddb.index", "index region file")
	varFile := fs.String("var", "embeddb.var", "var-data region file")
	reset := fs.Bool("reset", false, "format a fresh engine before the operation")
	fs.Parse(os.Args[2:])
	args := fs.Args()

	cfg := embeddb.NewConfig(8, 8, 512, 6)
	cfg.UseVarData = true
	cfg.DataNumPages = 64
	cfg.VarNumPages = 64
	cfg.IndexMaxError = 4
	cfg.SplineCapacity = 256
	cfg.ResetData = *reset

	e, err := embeddb.OpenFiles(cfg, *dataFile, *indexFile, *varFile)
	if err != nil {
		fatal(err)
	}
	defer e.Close()

	switch cmd {
	case "put":
		requireArgs(args, 2, "put <key> <data>")
		mustPut(e, args[0], args[1])
	case "putvar":
		requireArgs(args, 3, "putvar <key> <data> <blob>")
		mustPutVar(e, args[0], args[1], args[2])
	case "get":
		requireArgs(args, 1, "get <key>")
		mustGet(e, args[0])
	case "getvar":
		requireArgs(args, 1, "getvar <key>")
		mustGetVar(e, args[0])
	case "iterate":
		mustIterate(e)
	case "stats":
		printStats(e)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: embeddbcmd {put|putvar|get|getvar|iterate|stats} [-data f] [-index f] [-var f] [-reset] args...")
}

func requireArgs(args []string, n int, form string) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, "usage:", form)
		os.Exit(2)
	}
}

// keyBytes encodes a decimal key as little-endian, matching the default
// comparator keycodec.Compare widens keys as.
func keyBytes(s string) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, parseUint(s))
	return b
}

func parseUint(s string) uint64 {
	var v uint64
	fmt.Sscanf(s, "%d", &v)
	return v
}

func dataBytes(s string) []byte {
	b := make([]byte, 8)
	copy(b, s)
	return b
}

func mustPut(e *embeddb.Engine, key, data string) {
	if err := e.Put(keyBytes(key), dataBytes(data)); err != nil {
		fatal(err)
	}
	if err := e.Flush(); err != nil {
		fatal(err)
	}
	fmt.Println("ok")
}

func mustPutVar(e *embeddb.Engine, key, data, blob string) {
	if err := e.PutVar(keyBytes(key), dataBytes(data), []byte(blob)); err != nil {
		fatal(err)
	}
	if err := e.Flush(); err != nil {
		fatal(err)
	}
	fmt.Println("ok")
}

func mustGet(e *embeddb.Engine, key string) {
	out := make([]byte, 8)
	if err := e.Get(keyBytes(key), out); err != nil {
		fatal(err)
	}
	fmt.Printf("%s\n", out)
}

func mustGetVar(e *embeddb.Engine, key string) {
	out := make([]byte, 8)
	blob, err := e.GetVar(keyBytes(key), out)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("data=%s blob=%s\n", out, blob)
}

func mustIterate(e *embeddb.Engine) {
	it, err := e.NewIterator(embeddb.IterBounds{})
	if err != nil {
		fatal(err)
	}
	key := make([]byte, 8)
	data := make([]byte, 8)
	for {
		ok, err := it.Next(key, data)
		if err != nil {
			fatal(err)
		}
		if !ok {
			return
		}
		fmt.Printf("%d\t%s\n", binary.LittleEndian.Uint64(key), data)
	}
}

func printStats(e *embeddb.Engine) {
	s := e.Stats()
	fmt.Printf("%+v\n", s)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
