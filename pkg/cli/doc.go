/*
Package cli provides helpers shared by the firetail commands.

Output formatting renders command results as an aligned table, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatCSV)
	if err := formatter.FormatTo(os.Stdout, entries); err != nil {
		return err
	}

Values implementing Tabular render as rows; JSON accepts anything.

Signal handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
	reload, stopReload := cli.ReloadSignals()
	defer stopReload()

ExitCode maps command errors to process exit codes.
*/
package cli
