package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mickamy/eagerorm/internal/gen"
	"github.com/mickamy/eagerorm/internal/naming"
)

// GenOptions holds the flags of the gen command.
type GenOptions struct {
	Type  string
	Table string
	File  string
}

// NewGenCommand creates the gen command. It is meant to run from a
// go:generate directive, which provides the source file through $GOFILE:
//
//	//go:generate go run github.com/mickamy/eagerorm gen --type User
func NewGenCommand() *cobra.Command {
	opts := &GenOptions{}

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate the model definition of a struct",
		Long: `Parse a Go struct and write <type>_def_gen.go next to it, declaring
<Type>Def (an orm.Def), Relate<Type> for rel-tagged fields, an Attrs method
and <Type>FromModel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outPath, err := runGen(opts)
			if err != nil {
				return err
			}
			cmd.Printf("eagerorm: wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Type, "type", "t", "", "struct type name (required)")
	cmd.Flags().StringVar(&opts.Table, "table", "", "table name (inferred from --type if omitted)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", os.Getenv("GOFILE"), "source file (defaults to $GOFILE)")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runGen(opts *GenOptions) (string, error) {
	if opts.File == "" {
		return "", errors.New("no source file: pass --file or run via go:generate")
	}

	info, err := gen.Parse(opts.File, opts.Type)
	if err != nil {
		return "", fmt.Errorf("parse: %w", err)
	}

	info.TableName = opts.Table
	if info.TableName == "" {
		info.TableName = naming.TableName(opts.Type)
	}

	src, err := gen.Render(info)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	outPath := filepath.Join(filepath.Dir(opts.File), gen.FileName(opts.Type))
	if err := os.WriteFile(outPath, src, 0o644); err != nil { //nolint:gosec // generated code should be world-readable
		return "", fmt.Errorf("write %s: %w", outPath, err)
	}
	return outPath, nil
}
