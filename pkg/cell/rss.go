package cell

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// sampleRSS reads the resident memory of a live process in KiB from
// /proc. Returns 0 when the process is gone or the field is missing;
// memory sampling is best-effort and never fails a cell.
func sampleRSS(pid int) int {
	file, err := os.Open(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return 0
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0
		}
		return kb
	}

	return 0
}
