// Package render formats session results as text tables for terminals.
package render

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/m64sim/emu"
	"github.com/sarchlab/m64sim/engine"
	"github.com/sarchlab/m64sim/session"
	"github.com/sarchlab/m64sim/snapshot"
)

const empty = "-"

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetTitle(title)
	t.SetStyle(table.StyleLight)
	return t
}

func describe(inst *snapshot.Instruction) string {
	if inst == nil {
		return empty
	}
	return inst.Code
}

func serial(inst *snapshot.Instruction) any {
	if inst == nil {
		return empty
	}
	return inst.SerialNumber
}

// Pipeline renders the occupancy of the core stages and FP unit slots.
func Pipeline(p snapshot.Pipeline) string {
	t := newTable("Pipeline")
	t.AppendHeader(table.Row{"Stage", "Instruction", "Serial"})

	for _, st := range engine.Stages {
		inst := p.Stage(st)
		t.AppendRow(table.Row{st.String(), describe(inst), serial(inst)})
	}

	t.AppendSeparator()
	for _, kind := range snapshot.Units {
		for i := 0; i < kind.Slots(); i++ {
			inst := p.Slot(kind, i)
			name := fmt.Sprintf("%s %d", kind, i+1)
			if kind.Slots() == 1 {
				name = kind.String()
			}
			t.AppendRow(table.Row{name, describe(inst), serial(inst)})
		}
	}

	return t.Render()
}

// Registers renders the GPR, FPU and special register banks side by side.
func Registers(d snapshot.RegisterDump) string {
	t := newTable("Registers")
	t.AppendHeader(table.Row{"Name", "Alias", "Hex", "Value", "Name", "Hex", "Value"})

	rows := len(d.GPR)
	if len(d.FPU) > rows {
		rows = len(d.FPU)
	}

	for i := 0; i < rows; i++ {
		row := table.Row{"", "", "", "", "", "", ""}
		if i < len(d.GPR) {
			r := d.GPR[i]
			row[0], row[1], row[2], row[3] = r.Name, r.Alias, r.HexString, r.Value
		}
		if i < len(d.FPU) {
			r := d.FPU[i]
			row[4], row[5], row[6] = r.Name, r.HexString, r.Value
		}
		t.AppendRow(row)
	}

	t.AppendSeparator()
	for _, r := range d.Special {
		t.AppendRow(table.Row{r.Name, "", r.HexString, r.Value})
	}

	return t.Render()
}

// Statistics renders the execution counters.
func Statistics(s snapshot.StatisticsDump) string {
	t := newTable("Statistics")

	cpi := 0.0
	if s.Instructions > 0 {
		cpi = float64(s.Cycles) / float64(s.Instructions)
	}

	t.AppendRows([]table.Row{
		{"Cycles", s.Cycles},
		{"Instructions", s.Instructions},
		{"CPI", fmt.Sprintf("%.2f", cpi)},
		{"RAW stalls", s.RAWStalls},
		{"WAW stalls", s.WAWStalls},
		{"Divider stalls", s.DividerStalls},
		{"Memory stalls", s.MemoryStalls},
		{"Code size (bytes)", s.CodeSizeBytes},
		{"FCSR", s.FCSR},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"L1I reads", s.L1IReads},
		{"L1I read misses", s.L1IReadMisses},
		{"L1D reads", s.L1DReads},
		{"L1D read misses", s.L1DReadMisses},
		{"L1D writes", s.L1DWrites},
		{"L1D write misses", s.L1DWriteMisses},
	})

	return t.Render()
}

// Memory renders a JSON memory dump.
func Memory(dump string) (string, error) {
	var doc struct {
		Cells []emu.CellDump `json:"cells"`
	}
	if err := json.Unmarshal([]byte(dump), &doc); err != nil {
		return "", fmt.Errorf("decoding memory dump: %w", err)
	}

	t := newTable("Memory")
	t.AppendHeader(table.Row{"Address", "Hex", "Value", "Label", "Code", "Comment"})
	for _, c := range doc.Cells {
		t.AppendRow(table.Row{c.AddressHex, c.ValueHex, c.Value, c.Label, c.Code, c.Comment})
	}

	return t.Render(), nil
}

// ParseErrors renders parser diagnostics, or an empty string when there
// are none.
func ParseErrors(errs []session.ParseError) string {
	if len(errs) == 0 {
		return ""
	}

	t := newTable("Diagnostics")
	t.AppendHeader(table.Row{"Line", "Column", "Kind", "Message"})
	for _, e := range errs {
		kind := "error"
		if e.IsWarning {
			kind = "warning"
		}
		t.AppendRow(table.Row{e.Row, e.Column, kind, e.Description})
	}

	return t.Render()
}
