// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/citic/botNeumann-sub000/internal/app"
	"github.com/citic/botNeumann-sub000/internal/config"
)

var (
	version = "0.3"
)

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 && os.Args[1] == "init" {
		if err := runInit(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	var (
		configPath  string
		host        string
		port        int
		program     string
		noStart     bool
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: auto-detect)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&host, "host", "", "HTTP server host (overrides config)")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.StringVar(&program, "program", "", "Program to debug (overrides config)")
	flag.StringVar(&program, "p", "", "Program to debug (short)")
	flag.BoolVar(&noStart, "no-start", false, "Do not start the debugger until asked over the API")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.Parse()

	if showVersion {
		fmt.Printf("gdbmi %s\n", version)
		os.Exit(0)
	}

	if configPath == "" {
		found, err := config.NewLoader().FindConfig(".")
		if err != nil {
			log.Fatalf("Error: %v (run 'gdbmi init' to create one)", err)
		}
		configPath = found
	}

	log.Printf("Using config: %s", configPath)

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Host:       host,
		Port:       port,
		Program:    program,
		NoStart:    noStart,
		Version:    version,
	})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	if err := application.Run(context.Background()); err != nil {
		log.Fatalf("App error: %v", err)
	}
}

// runInit handles "gdbmi init".
func runInit(args []string) error {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	showHelp := initFlags.Bool("help", false, "Show help for init command")
	initFlags.BoolVar(showHelp, "h", false, "Show help for init command")
	initFlags.Parse(args)

	if *showHelp {
		fmt.Println(`Usage: gdbmi init [options]

Create a gdbmi.hjson configuration file in the current directory.

The command asks for:
  - Debugger executable (defaults to gdb)
  - Program to debug and its arguments
  - Server port (defaults to 7410)

Options:
  -h, -help    Show this help message

After running init:
  1. Review and edit gdbmi.hjson as needed
  2. Run: gdbmi
  3. Try: gdbmi-ctl send -break-insert main`)
		return nil
	}

	const configFile = "gdbmi.hjson"
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use a different directory", configFile)
	}

	answers := askInit(bufio.NewReader(os.Stdin), os.Stdout)
	if err := os.WriteFile(configFile, []byte(generateConfig(answers)), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Println()
	fmt.Printf("Created %s\n", configFile)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit gdbmi.hjson as needed")
	fmt.Println("  2. Run: gdbmi")
	fmt.Println("  3. Check: gdbmi-ctl status")
	return nil
}

type initAnswers struct {
	Debugger string
	Program  string
	Args     []string
	Port     int
}

func askInit(reader *bufio.Reader, out io.Writer) initAnswers {
	fmt.Fprintln(out, "gdbmi Configuration Setup")
	fmt.Fprintln(out, "=========================")
	fmt.Fprintln(out, "Press Enter to accept defaults shown in [brackets].")
	fmt.Fprintln(out)

	a := initAnswers{}
	a.Debugger = prompt(reader, out, "Debugger executable", "gdb")
	a.Program = prompt(reader, out, "Program to debug (or empty to load later)", "")
	if a.Program != "" {
		a.Args = strings.Fields(prompt(reader, out, "Program arguments", ""))
	}
	portStr := prompt(reader, out, "Server port", "7410")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		port = 7410
	}
	a.Port = port
	return a
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

// escapeHJSONValue escapes a string for safe inclusion in an HJSON double-quoted value.
func escapeHJSONValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + escapeHJSONValue(v) + `"`
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func generateConfig(a initAnswers) string {
	var sb strings.Builder

	sb.WriteString(`{
  // =============================================================================
  // gdbmi configuration
  // =============================================================================
  //
  // HJSON: JSON with comments and relaxed syntax. gdbmi.yaml and gdbmi.toml
  // with the same keys are accepted too.
  //
  // String values may use templates:
  //   {{.ConfigDir}}        - directory holding this file
  //   {{.Home}}             - your home directory
  //   {{env "NAME"}}        - environment variable

  // ---------------------------------------------------------------------------
  // Debugger
  // ---------------------------------------------------------------------------
  debugger: {
`)
	fmt.Fprintf(&sb, "    path: \"%s\"\n", escapeHJSONValue(a.Debugger))
	sb.WriteString(`
    // MI dialect passed as --interpreter (mi, mi2, mi3, mi4)
    interpreter: mi

    // Extra debugger arguments, e.g. ["-nx"] to skip .gdbinit
    args: ["-nx", "-q"]

    // How long a command may wait for its result record
    command_timeout: 30s

    // How long to wait for the first (gdb) prompt
    start_timeout: 10s

    // Grace period for each shutdown stage (exit command, SIGTERM, SIGKILL)
    stop_timeout: 5s
    exit_command: -gdb-exit
  }

  // ---------------------------------------------------------------------------
  // Program being debugged
  // ---------------------------------------------------------------------------
  inferior: {
`)
	fmt.Fprintf(&sb, "    program: \"%s\"\n", escapeHJSONValue(a.Program))
	fmt.Fprintf(&sb, "    args: %s\n", quoteList(a.Args))
	sb.WriteString(`
    // Run the program on its own pseudo-terminal so its output stays off
    // the MI stream
    tty: true

    // Reload symbols when the program is rebuilt
`)
	fmt.Fprintf(&sb, "    watch: %t\n", a.Program != "")
	sb.WriteString(`  }

  // ---------------------------------------------------------------------------
  // HTTP API
  // ---------------------------------------------------------------------------
  server: {
    host: 127.0.0.1
`)
	fmt.Fprintf(&sb, "    port: %d\n", a.Port)
	sb.WriteString(`  }

  events: {
    history: {
      max_events: 10000
      max_age: 1h
    }
  }

  watch: {
    debounce: 100ms
  }
}
`)
	return sb.String()
}
