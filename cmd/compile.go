package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Davincible/chat-dialect-router/internal/dialects"
	"github.com/Davincible/chat-dialect-router/internal/prompt"
)

var compileCmd = &cobra.Command{
	Use:   "compile <dialect> [file]",
	Short: "Compile a canonical request to a dialect wire body",
	Long: `Compile a canonical chat request (JSON, from a file or stdin) into the
wire body of the given dialect and print it. Useful for inspecting what a
provider would receive without sending anything.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().Bool("compact", false, "print the body without indentation")
}

func runCompile(cmd *cobra.Command, args []string) error {
	registry := dialects.NewRegistry()
	registry.Initialize()

	compiler, ok := registry.Get(args[0])
	if !ok {
		return fmt.Errorf("%w: %s (known: %v)", dialects.ErrUnknownDialect, args[0], registry.List())
	}

	var (
		data []byte
		err  error
	)

	if len(args) == 2 {
		data, err = os.ReadFile(args[1])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}

	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}

	req, err := prompt.DecodeRequest(data)
	if err != nil {
		return err
	}

	body, err := compiler.Compile(req)
	if err != nil {
		return fmt.Errorf("compile for %s: %w", compiler.Name(), err)
	}

	if compact, _ := cmd.Flags().GetBool("compact"); compact {
		fmt.Println(string(body))
		return nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return nil
	}

	fmt.Println(pretty.String())

	return nil
}
