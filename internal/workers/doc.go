/*
Package workers sizes the scanner's concurrency from the container's CPU
limit.

runtime.NumCPU reports the host's CPUs, while GOMAXPROCS follows the cgroup
quota (Go 1.19+). A scan of four roots in a 2-CPU pod should walk two roots
at a time, not sixty-four:

	producers := workers.ForRoots(len(roots))

Each producer decodes and resamples on its own goroutine, so scanning is
CPU-bound and [ForRoots] uses one worker per CPU. [ForIO] doubles that for
work that mostly waits on the filesystem.

The SCAN_WORKERS environment variable overrides the calculation. The limit
passed by the caller still applies:

	env:
	- name: SCAN_WORKERS
	  value: "4"
*/
package workers
