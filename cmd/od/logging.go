package main

import (
	kitlog "github.com/go-kit/log"
)

var levelRank = map[string]int{
	"debug":    0,
	"info":     1,
	"notice":   1,
	"warn":     2,
	"warning":  2,
	"critical": 3,
}

// levelFilter drops records whose "level" value ranks below min. Records
// without a level always pass.
type levelFilter struct {
	next kitlog.Logger
	min  int
}

func (l levelFilter) Log(keyvals ...interface{}) error {
	for i := 0; i+1 < len(keyvals); i += 2 {
		if keyvals[i] != "level" {
			continue
		}
		if s, ok := keyvals[i+1].(string); ok {
			if rank, known := levelRank[s]; known && rank < l.min {
				return nil
			}
		}
	}
	return l.next.Log(keyvals...)
}
