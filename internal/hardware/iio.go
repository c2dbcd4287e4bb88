package hardware

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// defaultIIORoot is where the kernel's dht11 driver (dtoverlay=dht11) registers.
const defaultIIORoot = "/sys/bus/iio/devices"

// readIIODHT11 reads the first dht11 device exposed through the kernel IIO
// subsystem. The driver does the single-wire timing; values are in milli-units.
func readIIODHT11(root string) (Reading, error) {
	dev, err := findIIODevice(root, "dht11")
	if err != nil {
		return Reading{}, err
	}

	temp, err := readMilli(filepath.Join(dev, "in_temp_input"))
	if err != nil {
		return Reading{}, err
	}
	hum, err := readMilli(filepath.Join(dev, "in_humidityrelative_input"))
	if err != nil {
		return Reading{}, err
	}
	return Reading{Temperature: temp, Humidity: hum}, nil
}

func findIIODevice(root, name string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(root, "iio:device*"))
	if err != nil {
		return "", fmt.Errorf("%w: scanning %s: %w", ErrHardware, root, err)
	}
	for _, dev := range matches {
		b, err := os.ReadFile(filepath.Join(dev, "name"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(b)) == name {
			return dev, nil
		}
	}
	return "", fmt.Errorf("%w: no %s device under %s", ErrDetached, name, root)
}

// readMilli parses an integer milli-unit file. The dht11 driver returns
// EIO on checksum failures, which is transient.
func readMilli(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrHardware, filepath.Base(path), err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrHardware, filepath.Base(path), err)
	}
	return float64(v) / 1000, nil
}
