package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Author 是提交的作者信息 (name, email, 带时区的时间)
type Author struct {
	Name  string
	Email string
	When  time.Time
}

// String is the serialized form "<name> <<email>> <unix-seconds> <±hhmm>".
func (a Author) String() string {
	return fmt.Sprintf("%s <%s> %d %s", a.Name, a.Email, a.When.Unix(), formatOffset(a.When))
}

// Ident 返回不带时间的 "<name> <<email>>"
func (a Author) Ident() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

func formatOffset(t time.Time) string {
	_, offset := t.Zone()
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("%c%02d%02d", sign, offset/3600, (offset%3600)/60)
}

// ParseAuthor 解析 String() 的输出
func ParseAuthor(s string) (Author, error) {
	lt := strings.IndexByte(s, '<')
	gt := strings.LastIndexByte(s, '>')
	if lt < 0 || gt < lt {
		return Author{}, fmt.Errorf("%w: bad author %q", ErrMalformedObject, s)
	}
	name := strings.TrimSuffix(s[:lt], " ")
	email := s[lt+1 : gt]

	fields := strings.Fields(s[gt+1:])
	if len(fields) != 2 {
		return Author{}, fmt.Errorf("%w: bad author timestamp %q", ErrMalformedObject, s)
	}
	secs, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Author{}, fmt.Errorf("%w: bad author timestamp %q", ErrMalformedObject, fields[0])
	}
	loc, err := parseOffset(fields[1])
	if err != nil {
		return Author{}, err
	}
	return Author{Name: name, Email: email, When: time.Unix(secs, 0).In(loc)}, nil
}

func parseOffset(s string) (*time.Location, error) {
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return nil, fmt.Errorf("%w: bad timezone %q", ErrMalformedObject, s)
	}
	hh, err1 := strconv.Atoi(s[1:3])
	mm, err2 := strconv.Atoi(s[3:5])
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("%w: bad timezone %q", ErrMalformedObject, s)
	}
	offset := hh*3600 + mm*60
	if s[0] == '-' {
		offset = -offset
	}
	return time.FixedZone(s, offset), nil
}
