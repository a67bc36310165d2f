package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	DatasetOptions
}

// LoadResult is the JSON payload of the load command.
type LoadResult struct {
	Files int `json:"files"`
	Read  int `json:"read"`
	Added int `json:"added"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <file.nq>...",
		Short: "Load N-Quads files into a database",
		Long: `Insert the quads of N-Quads files into a SQLite database (--db) or a
Badger directory (--kv). Quads already stored are skipped.

Examples:
  distill load --db quads.db people.nq teams.nq
  cat people.nq | distill load --kv ./quads -`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database to insert into")
	cmd.Flags().StringVar(&opts.KV, "kv", "", "Badger directory to insert into")
	cmd.MarkFlagsMutuallyExclusive("db", "kv")
	cmd.MarkFlagsOneRequired("db", "kv")

	return cmd
}

func runLoad(opts *LoadOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger(cmd)
	ctx := cmd.Context()

	ds, err := openDataset(ctx, logger, "", nil, opts.DatasetOptions)
	if err != nil {
		return commandError(formatter, ErrCodeStoreFailed, err)
	}
	defer ds.close()

	result := LoadResult{}
	for _, file := range files {
		mem, err := readNQuadsFile(file, cmd.InOrStdin())
		if err != nil {
			return commandError(formatter, ErrCodeInvalidInput, err)
		}
		n, err := ds.insert(ctx, mem.Quads()...)
		if err != nil {
			return commandError(formatter, ErrCodeStoreFailed, fmt.Errorf("%s: %w", file, err))
		}
		formatter.VerboseLog("%s: %d quad(s), %d new", file, mem.Len(), n)
		logger.Debug("file loaded", "file", file, "quads", mem.Len(), "added", n)

		result.Files++
		result.Read += mem.Len()
		result.Added += n
	}

	if err := ds.close(); err != nil {
		return commandError(formatter, ErrCodeStoreFailed, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("✓ Loaded %d quad(s) from %d file(s), %d new", result.Read, result.Files, result.Added))
}
