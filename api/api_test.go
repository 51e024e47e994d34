package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gtypes "github.com/ethereum/go-ethereum/core/types"
	qt "github.com/frankban/quicktest"

	"github.com/mystikonetwork/relayer/channel"
	"github.com/mystikonetwork/relayer/config"
	"github.com/mystikonetwork/relayer/internal"
	"github.com/mystikonetwork/relayer/storage"
	"github.com/mystikonetwork/relayer/types"
	"github.com/mystikonetwork/relayer/web3/txmanager"
)

const (
	testChainID     = uint64(5)
	testPoolAddress = "0x3333333333333333333333333333333333333333"
)

type mockTxManager struct {
	mu   sync.Mutex
	sent []txmanager.SendRequest
}

func (m *mockTxManager) Address() common.Address { return common.HexToAddress("0x01") }
func (m *mockTxManager) Eip1559() bool           { return false }

func (m *mockTxManager) GasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func (m *mockTxManager) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (m *mockTxManager) Send(_ context.Context, req txmanager.SendRequest) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, req)
	return common.HexToHash("0xaaaa"), nil
}

func (m *mockTxManager) Confirm(context.Context, common.Hash) (*gtypes.Receipt, error) {
	return &gtypes.Receipt{
		TxHash: common.HexToHash("0xbbbb"),
		Status: gtypes.ReceiptStatusSuccessful,
	}, nil
}

type fakeOracle struct {
	result *big.Int
}

func (o *fakeOracle) Swap(_ context.Context, _ string, _ uint32, _ *big.Int, _ string, _ uint32) (*big.Int, error) {
	return new(big.Int).Set(o.result), nil
}

func testRelayerConfig() *config.RelayerConfig {
	return &config.RelayerConfig{
		Version: "0.0.1",
		Chains: []config.RelayerChainConfig{{
			Name:                   "Goerli",
			ChainID:                testChainID,
			AssetSymbol:            "ETH",
			AssetDecimals:          18,
			RelayerContractAddress: "0x4444444444444444444444444444444444444444",
			Contracts: []config.ContractConfig{
				{
					AssetSymbol:               "ETH",
					AssetDecimals:             18,
					AssetType:                 types.AssetTypeMain,
					RelayerFeeOfTenThousandth: 25,
				},
				{
					AssetSymbol:               "MTT",
					AssetDecimals:             16,
					AssetType:                 types.AssetTypeErc20,
					RelayerFeeOfTenThousandth: 30,
				},
			},
			TransactionInfo: config.TransactionInfo{
				MainGasCost:  map[types.CircuitType]uint64{types.CircuitTypeTransaction1x0: 500_000},
				Erc20GasCost: map[types.CircuitType]uint64{types.CircuitTypeTransaction1x0: 600_000},
			},
		}},
	}
}

func testMystikoConfig() *config.MystikoConfig {
	return &config.MystikoConfig{
		Version: "0.0.1",
		Chains: []config.ChainConfig{{
			ChainID:         testChainID,
			Name:            "Goerli",
			AssetSymbol:     "ETH",
			AssetDecimals:   18,
			TransactionType: types.TransactionTypeLegacy,
			PoolContracts: []config.PoolContractConfig{{
				Address:       testPoolAddress,
				AssetSymbol:   "MTT",
				AssetDecimals: 16,
				BridgeType:    types.BridgeTypeLoop,
			}},
		}},
	}
}

// newTestAPI wires a real sqlite store and a running channel registry behind
// the router, with the chain mocked out.
func newTestAPI(t *testing.T, apiVersions []string) (*API, *storage.Storage) {
	c := qt.New(t)
	store, err := storage.New("")
	c.Assert(err, qt.IsNil)
	t.Cleanup(func() { _ = store.Close() })

	account := types.RelayerAccount{
		ChainID:              testChainID,
		ChainAddress:         "0x0000000000000000000000000000000000000001",
		Available:            true,
		SupportedErc20Tokens: []string{"mtt"},
	}
	c.Assert(store.ResetAccounts(context.Background(), []types.RelayerAccount{account}), qt.IsNil)

	oracle := &fakeOracle{result: big.NewInt(1_100_000_000_000)}
	registry := channel.NewRegistry(store, oracle, 0, []channel.Binding{{
		Account:           account,
		MainAssetSymbol:   "ETH",
		MainAssetDecimals: 18,
		TxManager:         &mockTxManager{},
	}})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = registry.Run(ctx) }()

	a, err := New(&APIConfig{
		ApiVersions:   apiVersions,
		RelayerConfig: testRelayerConfig(),
		MystikoConfig: testMystikoConfig(),
		Store:         store,
		Registry:      registry,
		Oracle:        oracle,
		GasPrice: func(context.Context, uint64) (*big.Int, error) {
			return big.NewInt(2_000_000_000), nil
		},
	})
	c.Assert(err, qt.IsNil)
	return a, store
}

func doJSON(t *testing.T, a *API, method, path string, body any) (int, Response) {
	c := qt.New(t)
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		c.Assert(err, qt.IsNil)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	response := Response{}
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &response), qt.IsNil,
		qt.Commentf("body: %s", rec.Body.String()))
	return rec.Code, response
}

func decodeData(t *testing.T, response Response, out any) {
	c := qt.New(t)
	raw, err := json.Marshal(response.Data)
	c.Assert(err, qt.IsNil)
	c.Assert(json.Unmarshal(raw, out), qt.IsNil)
}

func testTransactBody(signature, assetSymbol string) *types.TransactRequestData {
	return &types.TransactRequestData{
		ContractParam: types.TransactParams{
			RootHash:         types.NewBigInt(1),
			SigPk:            make(types.HexBytes, 32),
			RelayerFeeAmount: types.NewBigInt(100),
			PublicRecipient:  "0x1111111111111111111111111111111111111111",
			RelayerAddress:   "0x2222222222222222222222222222222222222222",
		},
		SpendType:     types.SpendTypeWithdraw,
		BridgeType:    types.BridgeTypeLoop,
		ChainID:       testChainID,
		AssetSymbol:   assetSymbol,
		AssetDecimals: 18,
		PoolAddress:   testPoolAddress,
		CircuitType:   types.CircuitTypeTransaction1x0,
		Signature:     signature,
	}
}

func waitForStatus(t *testing.T, store *storage.Storage, id string, status types.TransactStatus) *types.TransactionJob {
	c := qt.New(t)
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.FindTransaction(context.Background(), id)
		c.Assert(err, qt.IsNil)
		if job != nil && job.Status == status {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.Fatalf("transaction %s never reached status %s", id, status)
	return nil
}

func TestHandshake(t *testing.T) {
	c := qt.New(t)
	a, _ := newTestAPI(t, []string{"v1", "v2"})

	status, response := doJSON(t, a, http.MethodGet, "/handshake", nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(response.Code, qt.Equals, 0)
	handshake := HandshakeResponse{}
	decodeData(t, response, &handshake)
	c.Assert(handshake.PackageVersion, qt.Equals, internal.Version)
	c.Assert(handshake.ApiVersion, qt.DeepEquals, []string{"v1", "v2"})
}

func TestInfo(t *testing.T) {
	c := qt.New(t)
	a, _ := newTestAPI(t, []string{"v2"})

	// unknown chain
	status, response := doJSON(t, a, http.MethodPost, "/api/v2/info",
		RegisterInfoRequest{ChainID: 999})
	c.Assert(status, qt.Equals, http.StatusOK)
	info := RegisterInfoResponse{}
	decodeData(t, response, &info)
	c.Assert(info.ChainID, qt.Equals, uint64(999))
	c.Assert(info.Support, qt.IsFalse)

	// no options: every served contract, no fee quote
	_, response = doJSON(t, a, http.MethodPost, "/api/v2/info",
		RegisterInfoRequest{ChainID: testChainID})
	info = RegisterInfoResponse{}
	decodeData(t, response, &info)
	c.Assert(info.Support, qt.IsTrue)
	c.Assert(info.Available, qt.IsTrue)
	c.Assert(info.RelayerContractAddress, qt.Equals, "0x4444444444444444444444444444444444444444")
	c.Assert(info.Contracts, qt.HasLen, 2)
	for _, contract := range info.Contracts {
		c.Assert(contract.MinimumGasFee, qt.IsNil)
	}

	// main asset options: fee = gas price * main gas cost
	_, response = doJSON(t, a, http.MethodPost, "/api/v2/info", RegisterInfoRequest{
		ChainID: testChainID,
		Options: &RegisterOptions{AssetSymbol: "ETH", CircuitType: types.CircuitTypeTransaction1x0},
	})
	info = RegisterInfoResponse{}
	decodeData(t, response, &info)
	c.Assert(info.Contracts, qt.HasLen, 1)
	c.Assert(info.Contracts[0].MinimumGasFee, qt.Not(qt.IsNil))
	c.Assert(*info.Contracts[0].MinimumGasFee, qt.Equals, "1000000000000000")

	// erc20 options: fee converted into the token via the oracle
	_, response = doJSON(t, a, http.MethodPost, "/api/v2/info", RegisterInfoRequest{
		ChainID: testChainID,
		Options: &RegisterOptions{AssetSymbol: "MTT", CircuitType: types.CircuitTypeTransaction1x0},
	})
	info = RegisterInfoResponse{}
	decodeData(t, response, &info)
	c.Assert(info.Contracts, qt.HasLen, 1)
	c.Assert(info.Contracts[0].AssetSymbol, qt.Equals, "MTT")
	c.Assert(*info.Contracts[0].MinimumGasFee, qt.Equals, "1100000000000")

	// asset nobody serves
	_, response = doJSON(t, a, http.MethodPost, "/api/v2/info", RegisterInfoRequest{
		ChainID: testChainID,
		Options: &RegisterOptions{AssetSymbol: "DAI", CircuitType: types.CircuitTypeTransaction1x0},
	})
	info = RegisterInfoResponse{}
	decodeData(t, response, &info)
	c.Assert(info.Support, qt.IsFalse)
	c.Assert(info.Contracts, qt.HasLen, 0)
}

func TestTransactV2(t *testing.T) {
	c := qt.New(t)
	a, store := newTestAPI(t, []string{"v2"})

	status, response := doJSON(t, a, http.MethodPost, "/api/v2/transact",
		testTransactBody("0xabcd01", "ETH"))
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(response.Code, qt.Equals, 0)
	accepted := RelayTransactResponse{}
	decodeData(t, response, &accepted)
	c.Assert(accepted.UUID, qt.Not(qt.Equals), "")

	waitForStatus(t, store, accepted.UUID, types.StatusSucceeded)
	status, response = doJSON(t, a, http.MethodGet,
		"/api/v2/transaction/status/"+accepted.UUID, nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	jobStatus := RelayTransactStatusResponse{}
	decodeData(t, response, &jobStatus)
	c.Assert(jobStatus.Status, qt.Equals, types.StatusSucceeded)
	c.Assert(jobStatus.TransactionHash, qt.Equals, common.HexToHash("0xbbbb").Hex())

	// same signature again is rejected
	status, response = doJSON(t, a, http.MethodPost, "/api/v2/transact",
		testTransactBody("0xabcd01", "ETH"))
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	c.Assert(response.Code, qt.Equals, 40002)

	// erc20 asset nobody serves
	status, response = doJSON(t, a, http.MethodPost, "/api/v2/transact",
		testTransactBody("0xabcd02", "DAI"))
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	c.Assert(response.Code, qt.Equals, 40005)

	// chain not configured
	body := testTransactBody("0xabcd03", "ETH")
	body.ChainID = 7
	status, response = doJSON(t, a, http.MethodPost, "/api/v2/transact", body)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	c.Assert(response.Code, qt.Equals, 40003)

	// schema violation
	body = testTransactBody("0xabcd04", "ETH")
	body.CircuitType = "transaction9x9"
	status, response = doJSON(t, a, http.MethodPost, "/api/v2/transact", body)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	c.Assert(response.Code, qt.Equals, 40001)
}

func TestTransactionStatusNotFound(t *testing.T) {
	c := qt.New(t)
	a, _ := newTestAPI(t, []string{"v2"})

	status, response := doJSON(t, a, http.MethodGet,
		"/api/v2/transaction/status/no-such-id", nil)
	c.Assert(status, qt.Equals, http.StatusNotFound)
	c.Assert(response.Code, qt.Equals, 40006)
}

func TestV1Disabled(t *testing.T) {
	c := qt.New(t)
	a, _ := newTestAPI(t, []string{"v2"})

	req := httptest.NewRequest(http.MethodPost, "/status", bytes.NewReader([]byte(`{"chain_id":5}`)))
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	c.Assert(rec.Code, qt.Equals, http.StatusNotFound)
}

func TestChainStatusV1(t *testing.T) {
	c := qt.New(t)
	a, _ := newTestAPI(t, []string{"v1"})

	status, response := doJSON(t, a, http.MethodPost, "/status",
		ChainStatusRequest{ChainID: testChainID})
	c.Assert(status, qt.Equals, http.StatusOK)
	chainStatus := ChainStatusResponse{}
	decodeData(t, response, &chainStatus)
	c.Assert(chainStatus.Support, qt.IsTrue)
	c.Assert(chainStatus.Available, qt.IsTrue)
	c.Assert(chainStatus.RelayerContractAddress, qt.Not(qt.IsNil))
	c.Assert(*chainStatus.RelayerContractAddress, qt.Equals,
		"0x4444444444444444444444444444444444444444")
	c.Assert(chainStatus.Contracts, qt.HasLen, 2)

	// chain missing from the mystiko config
	_, response = doJSON(t, a, http.MethodPost, "/status", ChainStatusRequest{ChainID: 999})
	chainStatus = ChainStatusResponse{}
	decodeData(t, response, &chainStatus)
	c.Assert(chainStatus.Support, qt.IsFalse)
	c.Assert(chainStatus.ChainID, qt.Equals, uint64(999))
}

func testTransactBodyV1(signature string) *TransactRequestV1 {
	return &TransactRequestV1{
		RootHash:                types.NewBigInt(1),
		SigPk:                   "0x" + "00000000000000000000000000000000000000000000000000000000000000ff",
		PublicAmount:            types.NewBigInt(0),
		RelayerFeeAmount:        types.NewBigInt(100),
		PublicRecipient:         "0x1111111111111111111111111111111111111111",
		RelayerAddress:          "0x2222222222222222222222222222222222222222",
		OutEncryptedNotes:       []string{"0xdeadbeef"},
		RandomAuditingPublicKey: "12345",
		EncryptedAuditorNotes:   []string{"678", "910"},
		TransactionType:         types.SpendTypeWithdraw,
		BridgeType:              types.BridgeTypeLoop,
		ChainID:                 testChainID,
		AssetSymbol:             "MTT",
		PoolAddress:             testPoolAddress,
		CircuitType:             types.CircuitTypeTransaction1x0,
		Signature:               signature,
	}
}

func TestTransactV1(t *testing.T) {
	c := qt.New(t)
	a, store := newTestAPI(t, []string{"v1"})

	// blocks until the hash is known
	status, response := doJSON(t, a, http.MethodPost, "/transact", testTransactBodyV1("0xabcd10"))
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(response.Code, qt.Equals, 0)
	result := TransactResponse{}
	decodeData(t, response, &result)
	c.Assert(result.ID, qt.Not(qt.Equals), "")
	c.Assert(result.Hash, qt.Not(qt.Equals), "")
	c.Assert(result.ChainID, qt.Equals, testChainID)

	// decimals came from the pool contract config
	job, err := store.FindTransaction(context.Background(), result.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(job, qt.Not(qt.IsNil))
	c.Assert(job.AssetDecimals, qt.Equals, uint32(16))

	// the job is visible through the v1 status endpoint, with the legacy
	// job_type field name on the wire
	status, response = doJSON(t, a, http.MethodGet, "/jobs/"+result.ID, nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	rawJob, err := json.Marshal(response.Data)
	c.Assert(err, qt.IsNil)
	c.Assert(string(rawJob), qt.Contains, `"job_type":"withdraw"`)
	jobStatus := JobStatusResponse{}
	decodeData(t, response, &jobStatus)
	c.Assert(jobStatus.ID, qt.Equals, result.ID)
	c.Assert(jobStatus.Response, qt.Not(qt.IsNil))
	c.Assert(jobStatus.Response.Hash, qt.Not(qt.Equals), "")
	c.Assert(jobStatus.Response.ChainID, qt.Equals, testChainID)

	// unknown pool contract
	body := testTransactBodyV1("0xabcd11")
	body.PoolAddress = "0x9999999999999999999999999999999999999999"
	status, response = doJSON(t, a, http.MethodPost, "/transact", body)
	c.Assert(status, qt.Equals, http.StatusInternalServerError)
	c.Assert(response.Code, qt.Equals, 50005)

	// malformed sig_pk
	body = testTransactBodyV1("0xabcd12")
	body.SigPk = "0xzz"
	status, response = doJSON(t, a, http.MethodPost, "/transact", body)
	c.Assert(status, qt.Equals, http.StatusInternalServerError)
	c.Assert(response.Code, qt.Equals, 50005)
}

func TestJobStatusV1NotFound(t *testing.T) {
	c := qt.New(t)
	a, _ := newTestAPI(t, []string{"v1"})

	status, response := doJSON(t, a, http.MethodGet, "/jobs/no-such-id", nil)
	c.Assert(status, qt.Equals, http.StatusNotFound)
	c.Assert(response.Code, qt.Equals, 40006)
}
