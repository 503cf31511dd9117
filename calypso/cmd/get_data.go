package cmd

import (
	"fmt"

	"github.com/gregclo/calypso-core/apdu"
	"github.com/gregclo/calypso-core/calypso/card"
)

// GetDataTag identifies which card data object Get Data retrieves (spec.md
// §4.4): FCP of the current file, or the EF list of the current DF.
type GetDataTag uint16

const (
	GetDataFCP    GetDataTag = 0x0062
	GetDataEFList GetDataTag = 0x00C0
)

// GetData reads a card data object outside of a record read, e.g. the FCP
// of the currently selected file (spec.md §4.4).
type GetData struct {
	Tag GetDataTag

	Raw []byte
}

func (g *GetData) Ref() CommandRef { return CommandRef{Name: "GetData"} }

func (g *GetData) FinalizeRequest(ctx CommandContext) (*apdu.CommandAPDU, error) {
	cla := apdu.CalypsoClass(ctx.Product, false)
	p1 := byte(g.Tag >> 8)
	p2 := byte(g.Tag)
	return apdu.BuildCalypso(cla, apdu.INS_GET_DATA, p1, p2, nil, apdu.MaxShortLe)
}

func (g *GetData) CryptoNeed() CryptoNeed { return NoCrypto }

func (g *GetData) AnticipatedResponse(img *card.Image) ([]byte, error) { return nil, nil }

func (g *GetData) ParseResponse(resp *apdu.ResponseAPDU, img *card.Image, ctx CommandContext) error {
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("cmd: GetData failed: %s", resp.Status.Verbose())
	}
	g.Raw = resp.Data
	return nil
}

func (g *GetData) SessionBufferUsed() bool { return false }

func (g *GetData) StatusTable() apdu.StatusTable {
	return apdu.DefaultStatusTable.Merge(apdu.StatusTable{
		{apdu.SW_ERR_REF_DATA_NOT_FOUND, false, "data object not found"},
	})
}
