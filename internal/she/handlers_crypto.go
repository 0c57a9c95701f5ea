package she

import "github.com/shecore/hsm/internal/shecrypto"

// truncateToBlock drops any trailing bytes that don't complete a full
// AES block, matching the source's "only process a multiple of block
// size" handling of ENC/DEC length fields.
func truncateToBlock(n int) int {
	return n - (n % shecrypto.BlockSize)
}

func (e *Engine) loadCryptoKey(keyID byte) ([]byte, error) {
	_, key, err := e.store.ReadKey(e.keyID(keyID))
	if err != nil {
		return nil, fail(KeyNotAvailable)
	}
	return key, nil
}

// bulkCryptoRequest is the common shape of all four ENC/DEC requests:
// a target key slot, an optional 16-byte IV (CBC only), and a payload.
type bulkCryptoRequest struct {
	keyID   byte
	iv      []byte
	payload []byte
}

func parseECBRequest(req []byte) (bulkCryptoRequest, error) {
	if len(req) < 1 {
		return bulkCryptoRequest{}, fail(GeneralError)
	}
	return bulkCryptoRequest{keyID: req[0], payload: req[1:]}, nil
}

func parseCBCRequest(req []byte) (bulkCryptoRequest, error) {
	if len(req) < 1+shecrypto.BlockSize {
		return bulkCryptoRequest{}, fail(GeneralError)
	}
	return bulkCryptoRequest{
		keyID:   req[0],
		iv:      req[1 : 1+shecrypto.BlockSize],
		payload: req[1+shecrypto.BlockSize:],
	}, nil
}

// encECB implements ENC_ECB.
func (e *Engine) encECB(req []byte) ([]byte, error) {
	r, err := parseECBRequest(req)
	if err != nil {
		return nil, err
	}
	key, err := e.loadCryptoKey(r.keyID)
	if err != nil {
		return nil, err
	}
	defer shecrypto.Zero(key)
	n := truncateToBlock(len(r.payload))
	out, err := shecrypto.AesECBEncrypt(key, r.payload[:n])
	if err != nil {
		return nil, fail(GeneralError)
	}
	return out, nil
}

// encCBC implements ENC_CBC.
func (e *Engine) encCBC(req []byte) ([]byte, error) {
	r, err := parseCBCRequest(req)
	if err != nil {
		return nil, err
	}
	key, err := e.loadCryptoKey(r.keyID)
	if err != nil {
		return nil, err
	}
	defer shecrypto.Zero(key)
	n := truncateToBlock(len(r.payload))
	out, err := shecrypto.AesCBCEncrypt(key, r.iv, r.payload[:n])
	if err != nil {
		return nil, fail(GeneralError)
	}
	return out, nil
}

// decECB implements DEC_ECB.
func (e *Engine) decECB(req []byte) ([]byte, error) {
	r, err := parseECBRequest(req)
	if err != nil {
		return nil, err
	}
	key, err := e.loadCryptoKey(r.keyID)
	if err != nil {
		return nil, err
	}
	defer shecrypto.Zero(key)
	n := truncateToBlock(len(r.payload))
	out, err := shecrypto.AesECBDecrypt(key, r.payload[:n])
	if err != nil {
		return nil, fail(GeneralError)
	}
	return out, nil
}

// decCBC implements DEC_CBC.
func (e *Engine) decCBC(req []byte) ([]byte, error) {
	r, err := parseCBCRequest(req)
	if err != nil {
		return nil, err
	}
	key, err := e.loadCryptoKey(r.keyID)
	if err != nil {
		return nil, err
	}
	defer shecrypto.Zero(key)
	n := truncateToBlock(len(r.payload))
	out, err := shecrypto.AesCBCDecrypt(key, r.iv, r.payload[:n])
	if err != nil {
		return nil, fail(GeneralError)
	}
	return out, nil
}
