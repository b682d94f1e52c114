// Command parallax is the CLI for the RGB + depth pipeline: it starts and
// resumes runs, lists the run ledger, previews geometry plans, and verifies
// stream pairs.
package main
