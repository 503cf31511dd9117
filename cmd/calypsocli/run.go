package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gregclo/calypso-core/calypso/card"
	calcmd "github.com/gregclo/calypso-core/calypso/cmd"
	"github.com/gregclo/calypso-core/calypso/crypto"
	"github.com/gregclo/calypso-core/calypso/crypto/desprov"
	samcrypto "github.com/gregclo/calypso-core/calypso/crypto/sam"
	"github.com/gregclo/calypso-core/calypso/transaction"
	"github.com/gregclo/calypso-core/config"
	"github.com/gregclo/calypso-core/transceiver/pcsc"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Select an application and read one record, optionally inside a secure session",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := requireConfig(); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	product, err := cfg.ProductType()
	if err != nil {
		return err
	}

	cardName := cardReader
	if cardName == "" {
		cardName = cfg.CardReader.Name
	}
	if cardName == "" {
		return fmt.Errorf("no card reader configured; pass --reader or set card_reader.name")
	}

	cardConn, err := pcsc.Connect(cardName)
	if err != nil {
		return fmt.Errorf("connect card reader: %w", err)
	}
	defer cardConn.Close()
	printSuccess(fmt.Sprintf("connected to card reader %q", cardName))

	provider, closeProvider, err := buildCryptoProvider(cfg)
	if err != nil {
		return err
	}
	if closeProvider != nil {
		defer closeProvider()
	}

	aid, err := hex.DecodeString(strings.TrimSpace(aidHex))
	if err != nil {
		return fmt.Errorf("--aid: %w", err)
	}

	img := card.NewImage()
	ef := &card.EF{LID: card.LID(0x0800 | uint16(sfi)), SFI: card.SFI(sfi), Type: card.FileLinear, RecordSize: 29, RecordCount: 30}
	img.Declare(img.MF, ef)

	tx := transaction.New(img, provider, cardConn, product)
	tx.Prepare(&calcmd.SelectFile{Method: calcmd.SelectByAID, AID: aid})

	level, err := parseKeyLevel(keyLevel)
	if err != nil {
		return err
	}
	if withSession {
		if err := tx.PrepareOpenSecureSession(level, card.SFI(sfi), recordNum); err != nil {
			return fmt.Errorf("prepare open secure session: %w", err)
		}
	}

	readCmd := &calcmd.ReadRecords{SFI: card.SFI(sfi), RecordNumber: recordNum, Mode: calcmd.ReadOneRecord}
	tx.Prepare(readCmd)

	if withSession {
		if err := tx.PrepareCloseSecureSession(true); err != nil {
			return fmt.Errorf("prepare close secure session: %w", err)
		}
	}

	ctx := context.Background()
	if err := tx.ProcessCommands(ctx, transaction.CloseAfter); err != nil {
		printError(err.Error())
		return err
	}

	if s := tx.Session(); s != nil {
		printSessionState(s.State().String())
	} else {
		printSessionState("Closed")
	}
	printRecords(card.SFI(sfi), readCmd.Records)
	return nil
}

func parseKeyLevel(s string) (calcmd.KeyLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "personalization":
		return calcmd.KeyPersonalization, nil
	case "load":
		return calcmd.KeyLoad, nil
	case "debit":
		return calcmd.KeyDebit, nil
	default:
		return 0, fmt.Errorf("--level: unknown key level %q", s)
	}
}

// buildCryptoProvider picks the SAM-backed or software-reference provider
// per spec.md §6.2 point 2: a physical SAM reader when configured, the
// desprov software reference otherwise. The returned closer, if non-nil,
// releases the SAM reader connection.
func buildCryptoProvider(cfg *config.Config) (crypto.SymmetricCryptoProvider, func(), error) {
	if cfg.SoftwareKeys != nil && samReader == "" && (cfg.SAMReader == nil || cfg.SAMReader.Name == "") {
		keys, err := loadKeySet(cfg.SoftwareKeys)
		if err != nil {
			return nil, nil, err
		}
		return desprov.NewProvider(keys), nil, nil
	}

	samName := samReader
	if samName == "" && cfg.SAMReader != nil {
		samName = cfg.SAMReader.Name
	}
	if samName == "" {
		return nil, nil, fmt.Errorf("no sam_reader configured; pass --sam-reader or set software_keys")
	}
	samConn, err := pcsc.Connect(samName)
	if err != nil {
		return nil, nil, fmt.Errorf("connect SAM reader: %w", err)
	}
	printSuccess(fmt.Sprintf("connected to SAM reader %q", samName))

	samID, err := hex.DecodeString(strings.TrimSpace(cfg.SAMID))
	if err != nil {
		return nil, nil, fmt.Errorf("config.sam_id: %w", err)
	}

	return samcrypto.NewProvider(samConn, samID), func() { _ = samConn.Close() }, nil
}

func loadKeySet(sk *config.SoftwareKeys) (desprov.KeySet, error) {
	perso, err := readHexKeyFile(sk.PersonalizationKeyFile)
	if err != nil {
		return desprov.KeySet{}, err
	}
	keys := desprov.KeySet{PersonalizationKey: perso}
	if sk.LoadKeyFile != "" {
		if keys.LoadKey, err = readHexKeyFile(sk.LoadKeyFile); err != nil {
			return desprov.KeySet{}, err
		}
	}
	if sk.DebitKeyFile != "" {
		if keys.DebitKey, err = readHexKeyFile(sk.DebitKeyFile); err != nil {
			return desprov.KeySet{}, err
		}
	}
	return keys, nil
}

func readHexKeyFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file %s: %w", path, err)
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse key file %s: %w", path, err)
	}
	return key, nil
}
