// Package secrets detects and redacts credentials in instinct text pulled
// from outside the knowledge base.
//
// Imported records are scrubbed before they are written to the inherited
// directories so a shared export can never plant a live token in every
// project that consumes it. Rule IDs and counts are kept for reporting; the
// matched values are not.
package secrets
