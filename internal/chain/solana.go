package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	ata "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"custody-core/internal/model"
	"custody-core/pkg/hdwallet"
	"custody-core/pkg/logger"
)

// solanaFinalizedConfs finalized 状态折算的确认数，
// 必须不小于配置里 solana 的 required_confirmations
const solanaFinalizedConfs = 64

// solanaSignatureLimit 单次入账发现拉取的签名数
const solanaSignatureLimit = 50

// SolanaAdapter 基于 solana-go 的 JSON-RPC 客户端。
// 公共 RPC 节点限流很严，客户端带令牌桶限速。
// USDT 为 SPL Token，入账通过 pre/post token balance 差值发现。
type SolanaAdapter struct {
	client   *rpc.Client
	usdtMint solana.PublicKey
	decimals int32
}

func NewSolanaAdapter(rpcURL, usdtMint string) (*SolanaAdapter, error) {
	mint, err := solana.PublicKeyFromBase58(usdtMint)
	if err != nil {
		return nil, fmt.Errorf("非法 USDT mint 地址: %w", err)
	}
	client := rpc.NewWithCustomRPCClient(rpc.NewWithLimiter(
		rpcURL,
		rate.Every(time.Second),
		5,
	))
	return &SolanaAdapter{
		client:   client,
		usdtMint: mint,
		decimals: 6,
	}, nil
}

func (a *SolanaAdapter) Network() model.Network {
	return model.NetworkSolana
}

func (a *SolanaAdapter) GetBalance(ctx context.Context, addr string) (Balances, error) {
	owner, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return Balances{}, fmt.Errorf("非法 Solana 地址: %w", err)
	}

	native, err := a.client.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	if err != nil {
		return Balances{}, fmt.Errorf("查询 SOL 余额失败: %w", err)
	}

	tokenAmount := decimal.Zero
	accounts, err := a.client.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{Mint: &a.usdtMint},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64})
	if err != nil {
		return Balances{}, fmt.Errorf("查询 USDT 账户失败: %w", err)
	}
	for _, acc := range accounts.Value {
		balance, err := a.client.GetTokenAccountBalance(ctx, acc.Pubkey, rpc.CommitmentConfirmed)
		if err != nil {
			return Balances{}, fmt.Errorf("查询 USDT 余额失败: %w", err)
		}
		units, ok := new(big.Int).SetString(balance.Value.Amount, 10)
		if !ok {
			continue
		}
		tokenAmount = tokenAmount.Add(fromBaseUnits(units, int32(balance.Value.Decimals)))
	}

	return Balances{
		Native: decimal.NewFromBigInt(new(big.Int).SetUint64(native.Value), -9),
		Token:  tokenAmount,
	}, nil
}

func (a *SolanaAdapter) ListIncomingTransfers(ctx context.Context, addr string, sinceHint time.Time) ([]Transfer, error) {
	owner, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return nil, fmt.Errorf("非法 Solana 地址: %w", err)
	}

	limit := solanaSignatureLimit
	sigs, err := a.client.GetSignaturesForAddressWithOpts(ctx, owner,
		&rpc.GetSignaturesForAddressOpts{Limit: &limit})
	if err != nil {
		return nil, fmt.Errorf("拉取签名列表失败: %w", err)
	}

	var transfers []Transfer
	for _, sig := range sigs {
		if sig.Err != nil {
			continue
		}
		if sig.BlockTime != nil && sig.BlockTime.Time().Before(sinceHint) {
			break // 列表按时间倒序，之后的都更早
		}
		t, ok, err := a.extractIncoming(ctx, sig.Signature, owner)
		if err != nil {
			return nil, err
		}
		if ok {
			transfers = append(transfers, t)
		}
	}
	return transfers, nil
}

// extractIncoming 从一笔交易的 pre/post 余额差提取打给 owner 的入账
func (a *SolanaAdapter) extractIncoming(ctx context.Context, sig solana.Signature, owner solana.PublicKey) (Transfer, bool, error) {
	maxVersion := uint64(0)
	result, err := a.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return Transfer{}, false, fmt.Errorf("拉取交易 %s 失败: %w", sig, err)
	}
	if result == nil || result.Meta == nil || result.Meta.Err != nil {
		return Transfer{}, false, nil
	}
	tx, err := result.Transaction.GetTransaction()
	if err != nil || tx == nil {
		return Transfer{}, false, nil
	}

	from := ""
	if len(tx.Message.AccountKeys) > 0 {
		from = tx.Message.AccountKeys[0].String()
	}
	if from == owner.String() {
		return Transfer{}, false, nil // 自己发起的交易不算入账
	}

	// USDT: 逐 token account 比较 pre/post
	tokenDelta := decimal.Zero
	for _, post := range result.Meta.PostTokenBalances {
		if post.Owner == nil || !post.Owner.Equals(owner) || !post.Mint.Equals(a.usdtMint) {
			continue
		}
		postUnits, ok := new(big.Int).SetString(post.UiTokenAmount.Amount, 10)
		if !ok {
			continue
		}
		preUnits := big.NewInt(0)
		for _, pre := range result.Meta.PreTokenBalances {
			if pre.AccountIndex == post.AccountIndex {
				if v, ok := new(big.Int).SetString(pre.UiTokenAmount.Amount, 10); ok {
					preUnits = v
				}
				break
			}
		}
		delta := new(big.Int).Sub(postUnits, preUnits)
		if delta.Sign() > 0 {
			tokenDelta = tokenDelta.Add(fromBaseUnits(delta, int32(post.UiTokenAmount.Decimals)))
		}
	}
	if tokenDelta.IsPositive() {
		return Transfer{
			TxHash:      sig.String(),
			FromAddress: from,
			Amount:      tokenDelta,
			TokenSymbol: "USDT",
		}, true, nil
	}

	// SOL: 账户索引处的 lamports 差值
	for i, key := range tx.Message.AccountKeys {
		if !key.Equals(owner) {
			continue
		}
		if i >= len(result.Meta.PreBalances) || i >= len(result.Meta.PostBalances) {
			break
		}
		if result.Meta.PostBalances[i] > result.Meta.PreBalances[i] {
			lamports := result.Meta.PostBalances[i] - result.Meta.PreBalances[i]
			return Transfer{
				TxHash:      sig.String(),
				FromAddress: from,
				Amount:      decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9),
				TokenSymbol: "SOL",
			}, true, nil
		}
		break
	}
	return Transfer{}, false, nil
}

func (a *SolanaAdapter) GetConfirmations(ctx context.Context, txHash string) (uint64, error) {
	sig, err := solana.SignatureFromBase58(txHash)
	if err != nil {
		return 0, fmt.Errorf("非法签名 %s: %w", txHash, err)
	}
	result, err := a.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return 0, fmt.Errorf("查询签名状态失败: %w", err)
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return 0, nil
	}
	status := result.Value[0]
	if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
		return solanaFinalizedConfs, nil
	}
	if status.Confirmations != nil {
		return *status.Confirmations, nil
	}
	return 0, nil
}

// BroadcastTransfer 发起一笔转账。TokenSymbol 约定为 USDT (SPL transferChecked)，
// 若收款方的关联 token 账户不存在则在同一笔交易里先行创建。
func (a *SolanaAdapter) BroadcastTransfer(ctx context.Context, key *hdwallet.Key, to string, amount decimal.Decimal) (string, error) {
	owner, err := solana.PublicKeyFromBase58(key.Address)
	if err != nil {
		return "", fmt.Errorf("非法付款地址: %w", err)
	}
	dest, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("非法收款地址: %w", err)
	}

	sourceATA, _, err := solana.FindAssociatedTokenAddress(owner, a.usdtMint)
	if err != nil {
		return "", err
	}
	destATA, _, err := solana.FindAssociatedTokenAddress(dest, a.usdtMint)
	if err != nil {
		return "", err
	}

	instructions := make([]solana.Instruction, 0, 2)
	if _, err := a.client.GetAccountInfo(ctx, destATA); err != nil {
		// 收款方没有 USDT 账户，由付款方垫付租金创建
		instructions = append(instructions,
			ata.NewCreateInstruction(owner, dest, a.usdtMint).Build())
	}
	units := toBaseUnits(amount, a.decimals)
	instructions = append(instructions,
		token.NewTransferCheckedInstruction(
			units.Uint64(), uint8(a.decimals),
			sourceATA, a.usdtMint, destATA, owner, nil,
		).Build())

	return a.signAndSend(ctx, key, owner, instructions, to, amount)
}

func (a *SolanaAdapter) signAndSend(ctx context.Context, key *hdwallet.Key, payer solana.PublicKey, instructions []solana.Instruction, to string, amount decimal.Decimal) (string, error) {
	blockhash, err := a.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return "", fmt.Errorf("获取最新 blockhash 失败: %w", err)
	}
	tx, err := solana.NewTransaction(instructions, blockhash.Value.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return "", fmt.Errorf("组装交易失败: %w", err)
	}

	signer := solana.PrivateKey(key.Ed25519)
	_, err = tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(payer) {
			return &signer
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("签名交易失败: %w", err)
	}

	sig, err := a.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("广播交易失败: %w", err)
	}

	logger.Info("Solana 转账已广播",
		zap.String("tx_hash", sig.String()),
		zap.String("to", to),
		zap.String("amount", amount.String()))
	return sig.String(), nil
}
