// log_dump prints every record of a flight log, or of a capture of
// telemetry packets, as one line of text per record.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"av-fc-core/utils"
)

func main() {
	var (
		tags     = flag.String("tags", "", "Comma-separated tags to print; empty prints all")
		logLevel = flag.String("log", "warn", "trace|debug|info|warn|error|critical")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: log_dump [flags] <flight log>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log := utils.NewLogger(os.Stderr, utils.ParseLevel(*logLevel))
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	d := NewDumper(out, ParseTagFilter(*tags))
	failed := false
	for _, path := range flag.Args() {
		f, err := os.Open(path)
		if err != nil {
			log.Error("%v", err)
			failed = true
			continue
		}
		err = d.Dump(f)
		f.Close()
		if err != nil {
			log.Error("%s: %v", path, err)
			failed = true
		}
		log.Info("%s: %d records", path, d.Count())
	}
	if failed {
		out.Flush()
		os.Exit(1)
	}
}
