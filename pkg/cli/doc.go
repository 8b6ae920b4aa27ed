/*
Package cli provides command-line helpers for the itemengine command.

Output Formatting:

Results are written as aligned text, indented JSON or an xlsx workbook.
Results implementing Tabular are shown as tables; xlsx output requires it:

	formatter := cli.NewFormatter(cli.FormatXLSX)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Progress Reporting:

Validating a batch of item files reports progress on stderr:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(len(files))
	for _, f := range files {
		progress.Done(f, compile(f))
	}
	progress.Finish()

Signal Handling:

Processing stops between rules once SIGINT or SIGTERM arrives:

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

Errors:

ConfigError, CommandError and InputError classify failures; ExitCode maps
them to the process exit status.
*/
package cli
