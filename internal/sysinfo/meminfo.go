// file: internal/sysinfo/meminfo.go
// version: 1.0.0
// guid: 4e6a8c0e-2b4d-4f6a-8c1e-3a5c7e9b1d3f

package sysinfo

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// parseMeminfo reads MemTotal and MemAvailable, in bytes, from a
// /proc/meminfo style listing. Values there are given in kB.
func parseMeminfo(r io.Reader) (total, available uint64) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = kb * 1024
		case "MemAvailable:":
			available = kb * 1024
		}
	}
	return total, available
}
