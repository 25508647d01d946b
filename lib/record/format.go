// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"bytes"
	"strconv"
)

// timeLayout is microsecond precision in UTC. Every line has the same
// width up to the PID column, which keeps rotated files sortable.
const timeLayout = "2006-01-02 15:04:05.000000"

// AppendLine appends the rendered form of r to dst and returns the
// extended slice. pid is the session's process ID. Each message line
// gets its own prefix; trailing newlines in the message are dropped
// and an empty message still renders one line.
func AppendLine(dst []byte, pid int32, r Record) []byte {
	var prefix [96]byte
	header := r.Time().AppendFormat(prefix[:0], timeLayout)
	header = append(header, ' ')
	header = appendPadded(header, int64(pid), 5)
	header = append(header, ' ')
	header = appendPadded(header, int64(r.ThreadID), 5)
	header = append(header, ' ', r.Level.Letter(), ' ')

	message := bytes.TrimRight(r.Message, "\r\n")
	for {
		line := message
		index := bytes.IndexByte(message, '\n')
		if index >= 0 {
			line = message[:index]
		}

		dst = append(dst, header...)
		dst = append(dst, r.Tag...)
		dst = append(dst, ':', ' ')
		dst = append(dst, bytes.TrimRight(line, "\r")...)
		dst = append(dst, '\n')

		if index < 0 {
			return dst
		}
		message = message[index+1:]
	}
}

// FormatBatch renders every record in batch.
func FormatBatch(batch Batch) []byte {
	size := 0
	for i := range batch.Records {
		size += len(batch.Records[i].Message) + len(batch.Records[i].Tag) + 48
	}
	out := make([]byte, 0, size)
	for i := range batch.Records {
		out = AppendLine(out, batch.PID, batch.Records[i])
	}
	return out
}

func appendPadded(dst []byte, value int64, width int) []byte {
	var digits [20]byte
	formatted := strconv.AppendInt(digits[:0], value, 10)
	for i := len(formatted); i < width; i++ {
		dst = append(dst, ' ')
	}
	return append(dst, formatted...)
}
