/*
Package health probes the targets of a console check from the local machine.

The access proxy runs checks on its nodes. `zerocon check probe` runs the
same check from wherever the CLI is, which helps tell a broken service from
a node that cannot reach it.

	http  request each target with the check's method (GET or HEAD) and
	      headers, healthy when the status equals status_code (default 200)
	ping  open a TCP connection to each target, port 80 when none is given

The timeout is the check's timeout in seconds clamped to [1, 30], 5 when
unset. Probe runs all targets at once and returns results in target order.
Status counts consecutive results when a check is probed repeatedly.
*/
package health
