package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"github.com/luca-patrignani/dedecoin/api"
	"github.com/luca-patrignani/dedecoin/common"
	"github.com/luca-patrignani/dedecoin/ledger"
	"github.com/luca-patrignani/dedecoin/service"
	"github.com/luca-patrignani/dedecoin/wallet"
)

const (
	actionBlocks   = "Blockchain"
	actionPending  = "Pending transactions"
	actionCreate   = "Create transaction"
	actionMine     = "Mine pending transactions"
	actionWallet   = "Wallet"
	actionSettings = "Settings"
	actionValidate = "Validate chain"
	actionQuit     = "Quit"
)

type options struct {
	difficulty int
	reward     int64
	workers    int
	httpAddr   string
	tls        bool
	privateKey string
	debug      bool
}

func parseFlags() options {
	var o options
	flag.IntVar(&o.difficulty, "difficulty", 2, "leading zeros required in block hashes")
	flag.Int64Var(&o.reward, "reward", 100, "coins credited for every mined block")
	flag.IntVar(&o.workers, "workers", 1, "goroutines searching for a nonce")
	flag.StringVar(&o.httpAddr, "http", "", "serve the HTTP API on this address, e.g. 127.0.0.1:8080")
	flag.BoolVar(&o.tls, "tls", false, "serve the HTTP API over TLS with a self signed certificate")
	flag.StringVar(&o.privateKey, "key", "", "hex private key of the wallet, a new one is generated when empty")
	flag.BoolVar(&o.debug, "debug", false, "enable debug logging")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags()

	if o.debug {
		pterm.DefaultLogger.Level = pterm.LogLevelDebug
	}
	// Create a new slog handler with the default PTerm logger
	handler := pterm.NewSlogHandler(&pterm.DefaultLogger)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("D", pterm.FgYellow.ToStyle()),
		putils.LettersFromStringWithStyle("ede ", pterm.FgDarkGray.ToStyle()),
		putils.LettersFromStringWithStyle("C", pterm.FgYellow.ToStyle()),
		putils.LettersFromStringWithStyle("oin", pterm.FgDarkGray.ToStyle()),
	).Render()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc, err := newService(o, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	spinner, _ := pterm.DefaultSpinner.Start("Mining the first block for your wallet ...")
	if _, err := svc.Bootstrap(ctx); err != nil {
		spinner.Fail()
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	spinner.Success()

	if o.httpAddr != "" {
		server, err := startServer(svc, o, logger)
		if err != nil {
			logger.Error("failed to start HTTP API", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("HTTP API shutdown", "error", err)
			}
		}()
	}

	printWallet(svc)
	for ctx.Err() == nil {
		selected, err := pterm.DefaultInteractiveSelect.WithDefaultText("What do you want to do?").WithOptions([]string{
			actionBlocks, actionPending, actionCreate, actionMine, actionWallet, actionSettings, actionValidate, actionQuit,
		}).Show()
		if err != nil {
			logger.Error("failed to read selection", "error", err)
			break
		}
		pterm.Println()
		if selected == actionQuit {
			break
		}
		if err := runAction(ctx, svc, selected); err != nil {
			pterm.Error.Println(err.Error())
		}
	}
	svc.Wait()
}

func newService(o options, logger *slog.Logger) (*service.Service, error) {
	provider := common.EdDSA{}
	chain, err := ledger.NewBlockchain(provider,
		ledger.WithDifficulty(o.difficulty),
		ledger.WithMiningReward(o.reward),
		ledger.WithWorkers(o.workers),
		ledger.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	var w *wallet.Wallet
	if o.privateKey != "" {
		w, err = wallet.FromPrivateKey(provider, o.privateKey)
	} else {
		w, err = wallet.New(provider)
	}
	if err != nil {
		return nil, err
	}
	return service.New(chain, w, logger), nil
}

func runAction(ctx context.Context, svc *service.Service, action string) error {
	switch action {
	case actionBlocks:
		printBlocks(svc)
	case actionPending:
		printTransactions(svc, "Pending transactions", svc.Pending())
	case actionCreate:
		return createTransaction(svc)
	case actionMine:
		return mine(ctx, svc)
	case actionWallet:
		printWallet(svc)
	case actionSettings:
		return editSettings(svc)
	case actionValidate:
		if err := svc.Verify(); err != nil {
			pterm.Error.Printfln("The chain is invalid: %s", err.Error())
		} else {
			pterm.Success.Println("The chain is valid")
		}
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}

func createTransaction(svc *service.Service) error {
	to, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Recipient address").Show()
	pterm.Println()
	amountText, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Amount").Show()
	pterm.Println()
	amount, err := strconv.ParseInt(amountText, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q", amountText)
	}
	confirm, _ := pterm.DefaultInteractiveConfirm.
		WithDefaultText(fmt.Sprintf("Send %d to %s?", amount, wallet.Fingerprint(to))).
		WithDefaultValue(true).
		Show()
	if !confirm {
		pterm.Info.Println("Transaction cancelled.")
		return nil
	}
	tx, err := svc.SubmitTransaction(to, amount)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Transaction %s added to the pending pool", tx.CalculateHash()[:12])
	return nil
}

func mine(ctx context.Context, svc *service.Service) error {
	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Mining %d pending transactions ...", len(svc.Pending())))
	result := <-svc.MineAsync(ctx, "")
	if result.Err != nil {
		spinner.Fail()
		if errors.Is(result.Err, context.Canceled) {
			return errors.New("mining interrupted")
		}
		return result.Err
	}
	spinner.Success()
	printBlock(svc, len(svc.Blocks())-1, result.Block)
	return nil
}

func editSettings(svc *service.Service) error {
	cfg := svc.Config()
	difficultyText, _ := pterm.DefaultInteractiveTextInput.
		WithDefaultText("Difficulty").
		WithDefaultValue(strconv.Itoa(cfg.Difficulty)).
		Show()
	pterm.Println()
	rewardText, _ := pterm.DefaultInteractiveTextInput.
		WithDefaultText("Mining reward").
		WithDefaultValue(strconv.FormatInt(cfg.MiningReward, 10)).
		Show()
	pterm.Println()

	difficulty, err := strconv.Atoi(difficultyText)
	if err != nil {
		return fmt.Errorf("invalid difficulty %q", difficultyText)
	}
	reward, err := strconv.ParseInt(rewardText, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid mining reward %q", rewardText)
	}
	if err := svc.SetConfig(service.ConfigUpdate{Difficulty: &difficulty, MiningReward: &reward}); err != nil {
		return err
	}
	pterm.Success.Println("Settings saved")
	return nil
}

func startServer(svc *service.Service, o options, logger *slog.Logger) (*api.Server, error) {
	l, err := listen(o.httpAddr)
	if err != nil {
		return nil, err
	}
	server := api.NewServer(svc, logger)

	scheme := "http"
	serve := func() error { return server.Serve(l) }
	if o.tls {
		cert, _, err := api.GenerateSelfSignedCert(l.Addr().String())
		if err != nil {
			l.Close()
			return nil, err
		}
		scheme = "https"
		serve = func() error { return server.ServeTLS(l, cert) }
	}
	go func() {
		if err := serve(); err != nil {
			logger.Error("HTTP API stopped", "error", err)
		}
	}()

	pterm.Info.Printfln("HTTP API listening on %s://%s (reachable from %s)", scheme, l.Addr().String(), reachability(l))
	return server, nil
}
