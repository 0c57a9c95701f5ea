package she

import (
	"github.com/shecore/hsm/internal/shecrypto"
	"github.com/shecore/hsm/internal/shekeys"
)

// initRnd implements INIT_RND: derives the PRNG's seed and cipher keys
// from SECRET_KEY, advances the persisted PRNG_SEED by one generation,
// and marks the PRNG ready for RND.
func (e *Engine) initRnd() error {
	if e.rndInited {
		return fail(SequenceError)
	}

	_, secretKey, err := e.store.ReadKey(e.keyID(shekeys.SlotSecretKey))
	if err != nil {
		return fail(KeyNotAvailable)
	}
	defer shecrypto.Zero(secretKey)

	seedKey, err := deriveKey(secretKey, prngSeedKeyC)
	if err != nil {
		return fail(GeneralError)
	}
	defer shecrypto.Zero(seedKey)

	_, prevSeed, err := e.store.ReadKey(e.keyID(shekeys.SlotPRNGSeed))
	if err != nil {
		return fail(KeyNotAvailable)
	}

	nextSeed, err := shecrypto.AesCBCEncrypt(seedKey, make([]byte, shecrypto.BlockSize), prevSeed)
	shecrypto.Zero(prevSeed)
	if err != nil {
		return fail(GeneralError)
	}

	if err := e.store.AddObject(e.keyID(shekeys.SlotPRNGSeed), shekeys.Metadata{}, nextSeed); err != nil {
		shecrypto.Zero(nextSeed)
		return fail(KeyUpdateError)
	}
	copy(e.prngState[:], nextSeed)
	shecrypto.Zero(nextSeed)

	prngKey, err := deriveKey(secretKey, prngKeyC)
	if err != nil {
		return fail(GeneralError)
	}
	copy(e.prngKey[:], prngKey)
	shecrypto.Zero(prngKey)

	e.rndInited = true
	return nil
}

// rnd implements RND: advances the PRNG state by one AES-CBC step and
// returns it as the next 16 bytes of keystream.
func (e *Engine) rnd() ([]byte, error) {
	if !e.rndInited {
		return nil, fail(RngSeed)
	}
	next, err := shecrypto.AesCBCEncrypt(e.prngKey[:], make([]byte, shecrypto.BlockSize), e.prngState[:])
	if err != nil {
		return nil, fail(GeneralError)
	}
	copy(e.prngState[:], next)
	out := make([]byte, keySize)
	copy(out, next)
	return out, nil
}

// extendSeed implements EXTEND_SEED: folds caller-supplied entropy
// into both the live PRNG state and the persisted seed, independently,
// exactly as the source does (spec.md §9 notes this hashes the
// entropy twice rather than deriving one from the other).
func (e *Engine) extendSeed(entropy []byte) error {
	if !e.rndInited {
		return fail(RngSeed)
	}
	if len(entropy) != keySize {
		return fail(GeneralError)
	}

	newState, err := deriveKey(e.prngState[:], entropy)
	if err != nil {
		return fail(GeneralError)
	}
	copy(e.prngState[:], newState)
	shecrypto.Zero(newState)

	_, oldSeed, err := e.store.ReadKey(e.keyID(shekeys.SlotPRNGSeed))
	if err != nil {
		return fail(KeyNotAvailable)
	}
	newSeed, err := deriveKey(oldSeed, entropy)
	shecrypto.Zero(oldSeed)
	if err != nil {
		return fail(GeneralError)
	}
	defer shecrypto.Zero(newSeed)

	if err := e.store.AddObject(e.keyID(shekeys.SlotPRNGSeed), shekeys.Metadata{}, newSeed); err != nil {
		return fail(KeyUpdateError)
	}
	return nil
}
