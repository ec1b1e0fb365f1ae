package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanBytes(t *testing.T) {
	cases := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KiB",
		1536:            "1.5 KiB",
		2 * MebiByte:    "2.0 MiB",
		3 << 30:         "3.0 GiB",
		512*KibiByte + 1: "512.0 KiB",
	}
	for in, want := range cases {
		assert.Equal(t, want, HumanBytes(in))
	}
}
