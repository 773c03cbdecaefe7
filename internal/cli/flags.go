package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/service"
	"github.com/spf13/pflag"
)

// dateValue is a pflag.Value for an optional YYYY-MM-DD date. The target
// stays nil until the flag is set.
type dateValue struct {
	target **time.Time
}

var _ pflag.Value = (*dateValue)(nil)

func (d *dateValue) Set(s string) error {
	t, err := domain.ParseDay(s)
	if err != nil {
		return err
	}
	*d.target = &t
	return nil
}

func (d *dateValue) String() string {
	if d.target == nil || *d.target == nil {
		return ""
	}
	return (*d.target).Format(domain.DateLayout)
}

func (d *dateValue) Type() string { return "date" }

// dateVar registers an optional date flag on fs.
func dateVar(fs *pflag.FlagSet, target **time.Time, name, usage string) {
	fs.Var(&dateValue{target: target}, name, usage)
}

// statusValue parses a stage status, accepting snake_case aliases.
type statusValue struct {
	target *domain.StageStatus
}

func (s *statusValue) Set(v string) error {
	st, err := domain.ParseStageStatus(v)
	if err != nil {
		return err
	}
	*s.target = st
	return nil
}

func (s *statusValue) String() string {
	if s.target == nil {
		return ""
	}
	return string(*s.target)
}

func (s *statusValue) Type() string { return "status" }

func statusVar(fs *pflag.FlagSet, target *domain.StageStatus, name, usage string) {
	fs.Var(&statusValue{target: target}, name, usage)
}

// backfillEntries collects repeated CODE,START,COMPLETED[,NOTE] flags.
type backfillEntries struct {
	entries *[]service.BackfillUpdate
}

func (b *backfillEntries) Set(v string) error {
	parts := strings.SplitN(v, ",", 4)
	if len(parts) < 3 {
		return fmt.Errorf("backfill entry %q: expected CODE,START,COMPLETED[,NOTE]", v)
	}
	code, err := domain.ParseStageCode(parts[0])
	if err != nil {
		return err
	}
	start, err := domain.ParseDay(parts[1])
	if err != nil {
		return err
	}
	completed, err := domain.ParseDay(parts[2])
	if err != nil {
		return err
	}
	u := service.BackfillUpdate{StageCode: code, ActualStart: &start, CompletedOn: &completed}
	if len(parts) == 4 {
		u.Note = strings.TrimSpace(parts[3])
	}
	*b.entries = append(*b.entries, u)
	return nil
}

func (b *backfillEntries) String() string {
	if b.entries == nil {
		return "[]"
	}
	out := make([]string, len(*b.entries))
	for i, u := range *b.entries {
		out[i] = fmt.Sprintf("%s,%s,%s", u.StageCode, domain.FormatDay(u.ActualStart), domain.FormatDay(u.CompletedOn))
	}
	return "[" + strings.Join(out, " ") + "]"
}

func (b *backfillEntries) Type() string { return "entry" }
