// Package process runs external commands to completion and reports their exit
// status. The Executor interface lets callers substitute a scripted fake in
// tests instead of spawning real toolchains.
package process
