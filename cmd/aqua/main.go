package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	aqua "github.com/mrmateussiilva/aqualang-v2"
	"golang.org/x/term"
)

var version = "dev" // set via -ldflags at build time

// ANSI color codes for terminal output
const (
	colorYellow = "\x1b[93m"
	colorCyan   = "\x1b[96m"
	colorGray   = "\x1b[90m"
	colorReset  = "\x1b[0m"
)

// stderrSupportsColor checks if stderr is a terminal that supports color
// output, respecting NO_COLOR (https://no-color.org/) and TERM=dumb.
func stderrSupportsColor() bool {
	stderrInfo, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	if (stderrInfo.Mode() & os.ModeCharDevice) == 0 {
		return false
	}
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	if t := os.Getenv("TERM"); t == "dumb" {
		return false
	}
	return true
}

// errorPrintf prints an error message to stderr, using color if supported
func errorPrintf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if stderrSupportsColor() {
		fmt.Fprintf(os.Stderr, "%s%s%s", colorYellow, message, colorReset)
	} else {
		fmt.Fprint(os.Stderr, message)
	}
}

func main() {
	versionFlag := flag.Bool("version", false, "Show version and exit")
	demoFlag := flag.Bool("demo", false, "Run the fiber/channel demos and exit")
	debugFlag := flag.Bool("debug", false, "Enable debug output")
	flag.BoolVar(debugFlag, "d", false, "Enable debug output (short)")
	configFlag := flag.String("config", "aqua.toml", "Path to the runtime configuration file")

	flag.Usage = showUsage
	flag.Parse()

	if *versionFlag {
		fmt.Printf("aqua version %s\n", version)
		os.Exit(0)
	}

	cfg, err := aqua.LoadConfig(*configFlag)
	if err != nil {
		errorPrintf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *debugFlag {
		cfg.Debug = true
	}

	rt, err := aqua.NewRuntime(cfg)
	if err != nil {
		errorPrintf("Error creating runtime: %v\n", err)
		os.Exit(1)
	}
	if err := rt.Initialize(); err != nil {
		errorPrintf("Error initializing runtime: %v\n", err)
		os.Exit(1)
	}
	defer rt.Shutdown()

	// Shut the worker pool down cleanly on interrupt.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		rt.Shutdown()
		os.Exit(130)
	}()

	if *demoFlag {
		runDemos(rt)
		rt.WaitAll()
		os.Exit(0)
	}

	args := flag.Args()

	// Check if stdin is redirected/piped
	stdinInfo, _ := os.Stdin.Stat()
	isStdinRedirected := (stdinInfo.Mode() & os.ModeCharDevice) == 0

	switch {
	case len(args) > 0:
		requestedFile := args[0]
		foundFile := findSourceFile(requestedFile)
		if foundFile == "" {
			errorPrintf("Error: Source file not found: %s\n", requestedFile)
			if !strings.Contains(requestedFile, ".") {
				errorPrintf("Also tried: %s.aqua\n", requestedFile)
			}
			os.Exit(1)
		}
		content, err := os.ReadFile(foundFile)
		if err != nil {
			errorPrintf("Error reading source file: %v\n", err)
			os.Exit(1)
		}
		if !tokenizeAndPrint(string(content)) {
			os.Exit(1)
		}

	case isStdinRedirected:
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			errorPrintf("Error reading from stdin: %v\n", err)
			os.Exit(1)
		}
		if !tokenizeAndPrint(string(content)) {
			os.Exit(1)
		}

	default:
		runREPL()
	}
}

// tokenizeAndPrint scans source and prints one token per line. Reports
// whether scanning succeeded.
func tokenizeAndPrint(source string) bool {
	tokens, err := aqua.Tokenize(source)
	if err != nil {
		errorPrintf("%v\n", err)
		return false
	}
	for _, tok := range tokens {
		fmt.Println(tok)
	}
	return true
}

func findSourceFile(filename string) string {
	if _, err := os.Stat(filename); err == nil {
		return filename
	}
	if filepath.Ext(filename) == "" {
		aquaFile := filename + ".aqua"
		if _, err := os.Stat(aquaFile); err == nil {
			return aquaFile
		}
	}
	return ""
}

// runREPL reads lines interactively and prints their token streams.
func runREPL() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		fmt.Fprintln(os.Stderr, "REPL requires a terminal")
		return
	}

	fmt.Printf("aqua version %s\n", version)
	fmt.Println("Interactive tokenizer. Type 'exit' or 'quit' to leave.")
	fmt.Println()

	useColor := stderrSupportsColor()
	prompt := "aqua> "
	if useColor {
		prompt = colorCyan + "aqua>" + colorReset + " "
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(prompt)
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if lower == "exit" || lower == "quit" {
			return
		}

		tokens, err := aqua.Tokenize(line + "\n")
		if err != nil {
			errorPrintf("%v\n", err)
			continue
		}
		for _, tok := range tokens {
			if useColor {
				fmt.Printf("%s%s%s\n", colorGray, tok, colorReset)
			} else {
				fmt.Println(tok)
			}
		}
	}
}

// runDemos exercises the runtime: a producer/consumer pipeline over a
// rendezvous channel, then a parallel sum fanned out over eight fibers.
func runDemos(rt *aqua.Runtime) {
	fmt.Println("demo: producer/consumer over a rendezvous channel")

	pipe := rt.MakeChannel(0)
	rt.SpawnFiber(func(ctx *aqua.FiberContext) error {
		for i := 1; i <= 5; i++ {
			pipe.Send(ctx, aqua.TextValue(fmt.Sprintf("message %d", i)))
		}
		pipe.Close()
		return nil
	})
	rt.SpawnFiber(func(ctx *aqua.FiberContext) error {
		for {
			v, ok := pipe.Receive(ctx)
			if !ok {
				fmt.Println("  (channel closed)")
				return nil
			}
			fmt.Printf("  received: %s\n", v)
		}
	})
	rt.WaitAll()

	fmt.Println("demo: parallel sum of 1..1000000 over 8 fibers")

	const total = 1_000_000
	const parts = 8
	results := rt.MakeChannel(parts)
	chunk := total / parts
	for p := 0; p < parts; p++ {
		lo := p*chunk + 1
		hi := (p + 1) * chunk
		rt.SpawnFiber(func(ctx *aqua.FiberContext) error {
			var sum int64
			for i := lo; i <= hi; i++ {
				sum += int64(i)
			}
			results.Send(ctx, aqua.IntValue(sum))
			return nil
		})
	}

	var grand int64
	for p := 0; p < parts; p++ {
		v, _ := results.Receive(nil)
		n, _ := v.Int()
		grand += n
	}
	fmt.Printf("  sum = %d\n", grand)
}

func showUsage() {
	usage := `Usage: aqua [options] [source.aqua]
       aqua [options] < input.aqua
       echo "let x = 1" | aqua [options]

Tokenize Aqua source from a file, stdin, or an interactive prompt.

Options:
  -version            Show version and exit
  -demo               Run the fiber/channel demos and exit
  -d, -debug          Enable debug output
  -config FILE        Runtime configuration file (default: aqua.toml)

Arguments:
  source.aqua         Source file to tokenize (adds .aqua extension if needed)

Examples:
  aqua hello.aqua            # Print the token stream of a file
  aqua -demo                 # Exercise fibers, channels and the scheduler
  aqua -d -demo              # Same, with scheduler/GC debug logging
`
	fmt.Fprint(os.Stderr, usage)
}
