package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "scan":
		return runScan(args[1:])
	case "generate":
		return runGenerate(args[1:])
	case "preview":
		return runPreview(args[1:])
	case "serve":
		return runServe(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("n8n-snap: batch renderer for n8n workflow JSON files")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  n8n-snap scan --input ./workflows")
	fmt.Println("  n8n-snap generate --input ./workflows --output ./images")
	fmt.Println("  n8n-snap generate --input ./workflows --in-place --dark-mode")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  scan      discover and validate workflow files without rendering")
	fmt.Println("  generate  render every valid workflow in a folder to PNG")
	fmt.Println("  preview   render a single workflow file to PNG")
	fmt.Println("  serve     run the render backend standalone")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Use --json on commands for machine-readable output")
	fmt.Println("  - A previous run's successes are skipped; pass --force to redo them")
	fmt.Println("  - Settings file n8n-snap.yaml in the input folder overrides built-ins;")
	fmt.Println("    flags override both")
}
