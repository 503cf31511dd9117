package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/gregclo/calypso-core/calypso/card"
	"github.com/gregclo/calypso-core/internal/log"
)

var (
	colorHeader  = text.Colors{text.FgCyan, text.Bold}
	colorLabel   = text.Colors{text.FgYellow}
	colorValue   = text.Colors{text.FgWhite}
	colorSuccess = text.Colors{text.FgGreen}
	colorError   = text.Colors{text.FgRed}
	colorWarn    = text.Colors{text.FgYellow}
)

func getTableStyle() table.Style {
	style := table.StyleRounded
	style.Color.Header = colorHeader
	style.Color.Row = text.Colors{text.FgWhite}
	style.Options.SeparateRows = false
	return style
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(getTableStyle())
	return t
}

func printError(msg string) {
	fmt.Println(colorError.Sprintf("x Error: %s", msg))
}

func printSuccess(msg string) {
	fmt.Println(colorSuccess.Sprintf("+ %s", msg))
}

func printWarning(msg string) {
	fmt.Println(colorWarn.Sprintf("! %s", msg))
}

func printReaderList(readers []string) {
	fmt.Println()
	t := newTable()
	t.SetTitle("PC/SC READERS")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 4},
		{Number: 2, Colors: colorValue, WidthMin: 40},
	})
	if len(readers) == 0 {
		t.AppendRow(table.Row{"-", colorWarn.Sprint("no readers found")})
	}
	for i, name := range readers {
		t.AppendRow(table.Row{i, name})
	}
	t.Render()
}

func printFCI(fci *card.CalypsoFCI) {
	fmt.Println()
	t := newTable()
	t.SetTitle("SELECTED APPLICATION")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 18},
		{Number: 2, Colors: colorValue, WidthMin: 40},
	})
	if fci.FCP != nil {
		t.AppendRow(table.Row{"DF name", log.HexField(fci.FCP.DFName)})
	}
	if fci.Startup != nil {
		t.AppendRow(table.Row{"Product type", fmt.Sprintf("%02X", fci.Startup.ProductType)})
		t.AppendRow(table.Row{"Software version", fmt.Sprintf("%d.%d", fci.Startup.SoftwareVersion, fci.Startup.SoftwareRevision)})
	}
	t.Render()
}

func printRecords(sfi card.SFI, records map[int][]byte) {
	fmt.Println()
	t := newTable()
	t.SetTitle(fmt.Sprintf("RECORDS SFI %02X", byte(sfi)))
	t.AppendHeader(table.Row{"Record", "Data"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel},
		{Number: 2, Colors: colorValue},
	})
	if len(records) == 0 {
		t.AppendRow(table.Row{"-", colorWarn.Sprint("no records returned")})
	}
	for rec, data := range records {
		t.AppendRow(table.Row{rec, log.HexField(data)})
	}
	t.Render()
}

func printSessionState(state string) {
	fmt.Println()
	t := newTable()
	t.SetTitle("SECURE SESSION")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 10},
		{Number: 2, Colors: colorValue, WidthMin: 20},
	})
	t.AppendRow(table.Row{"State", state})
	t.Render()
}
