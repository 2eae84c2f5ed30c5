package main

import (
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/luca-patrignani/dedecoin/ledger"
	"github.com/luca-patrignani/dedecoin/service"
	"github.com/luca-patrignani/dedecoin/wallet"
)

func printBlocks(svc *service.Service) {
	var panels []pterm.Panel
	for i, b := range svc.Blocks() {
		panels = append(panels, pterm.Panel{Data: blockBox(i, b)})
	}
	// Three blocks per row.
	var rows [][]pterm.Panel
	for len(panels) > 0 {
		n := min(3, len(panels))
		rows = append(rows, panels[:n])
		panels = panels[n:]
	}
	pterm.DefaultPanel.WithPanels(rows).Render()
}

func printBlock(svc *service.Service, index int, b ledger.Block) {
	pterm.Println(blockBox(index, b))
	printTransactions(svc, "Transactions of block "+strconv.Itoa(index), b.Transactions)
}

func blockBox(index int, b ledger.Block) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(2).WithTopPadding(1).WithBottomPadding(1)
	title := pterm.LightCyan("Block " + strconv.Itoa(index))
	if index == 0 {
		title = pterm.LightYellow("Genesis block")
	}
	return pbox.WithTitle(title).WithTitleTopLeft().Sprintf(
		"Hash: %s\nPrevious: %s\nNonce: %d\nTimestamp: %s\nTransactions: %d",
		shortHash(b.Hash),
		shortHash(b.PreviousHash),
		b.Nonce,
		formatTimestamp(b.Timestamp),
		len(b.Transactions),
	)
}

func printTransactions(svc *service.Service, title string, txs []ledger.Transaction) {
	pterm.DefaultSection.Println(title)
	if len(txs) == 0 {
		pterm.Info.Println("No transactions")
		return
	}
	data := pterm.TableData{{"From", "To", "Amount", "Timestamp", "Valid"}}
	for _, tx := range txs {
		data = append(data, []string{
			addressLabel(svc, tx.From),
			addressLabel(svc, tx.To),
			strconv.FormatInt(tx.Amount, 10),
			formatTimestamp(tx.Timestamp),
			validLabel(svc, tx),
		})
	}
	pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
}

func printWallet(svc *service.Service) {
	w := svc.Wallet()
	cfg := svc.Config()
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	walletInfo := pbox.WithTitle(pterm.LightGreen("|YOUR WALLET|")).WithTitleTopCenter().Sprintf(
		"Fingerprint: %s\nAddress: %s\nBalance: %d",
		w.Fingerprint(),
		w.Address(),
		svc.Balance(w.Address()),
	)
	settings := pbox.WithTitle(pterm.LightYellow("|SETTINGS|")).WithTitleTopCenter().Sprintf(
		"Difficulty: %d\nMining reward: %d\nWorkers: %d",
		cfg.Difficulty,
		cfg.MiningReward,
		cfg.Workers,
	)
	pterm.DefaultPanel.WithPanels([][]pterm.Panel{
		{{Data: walletInfo}},
		{{Data: settings}},
	}).Render()

	history := svc.History(w.Address())
	if len(history) > 0 {
		printTransactions(svc, "Your transactions", history)
	}
}

func addressLabel(svc *service.Service, address string) string {
	switch {
	case address == "":
		return pterm.LightYellow("System")
	case svc.IsMine(address):
		return pterm.LightGreen(wallet.Fingerprint(address) + " (you)")
	default:
		return wallet.Fingerprint(address)
	}
}

func validLabel(svc *service.Service, tx ledger.Transaction) string {
	if !svc.IsTransactionValid(tx) {
		return pterm.LightRed("no")
	}
	return pterm.LightGreen("yes")
}

func formatTimestamp(ms int64) string {
	return time.UnixMilli(ms).Local().Format(time.DateTime)
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16] + "..."
	}
	return h
}
