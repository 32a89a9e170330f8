// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
)

var errBadSignature = errors.New("request signature is not valid")

func validateRequestHeaders(digest string, signature string, body []byte) (string, error) {
	// Digest = "SHA-256=<hashString>"
	// Signature = "keyId="member-pub-key", algorithm="ecdsa", headers="digest", signature=<signatureString>"
	if len(digest) < 15 || strings.Count(digest, "=") < 2 || len(signature) <= 15 ||
		strings.Count(signature, "=") < 4 || len(body) == 0 {
		return "", errors.Errorf("invalid input data length digest: %d, signature: %d, body: %d", len(digest),
			len(signature), len(body))
	}
	calculatedHash := sha256.Sum256(body)
	digest, err := parseDigest(digest)
	if err != nil {
		return "", err
	}
	incomingHash, err := base64.StdEncoding.DecodeString(digest)
	if err != nil {
		return "", errors.Wrap(err, "cant decode digest")
	}

	if !bytes.Equal(calculatedHash[:], incomingHash) {
		return "", errors.New("incorrect digest")
	}

	signature, err = parseSignature(signature)
	if err != nil {
		return "", err
	}
	return signature, nil
}

func parseDigest(digest string) (string, error) {
	index := strings.IndexByte(digest, '=')
	if index < 1 || (index+1) >= len(digest) {
		return "", errors.New("invalid digest")
	}

	return digest[index+1:], nil
}

func parseSignature(signature string) (string, error) {
	index := strings.Index(signature, "signature=")
	if index < 1 || (index+10) >= len(signature) {
		return "", errors.New("invalid signature")
	}

	return strings.Trim(signature[index+10:], `"`), nil
}

// signingPayload is what a caller signs: "METHOD /path", a newline, then the
// body.
func signingPayload(method, path string, body []byte) []byte {
	res := make([]byte, 0, len(method)+len(path)+len(body)+2)
	res = append(res, method...)
	res = append(res, ' ')
	res = append(res, path...)
	res = append(res, '\n')
	return append(res, body...)
}

// recoverSigner returns the address whose key produced the hex encoded
// [R || S || V] signature over keccak256(payload).
func recoverSigner(signature string, payload []byte) (crowdfund.Principal, error) {
	sig := common.FromHex(signature)
	if len(sig) != crypto.SignatureLength {
		return crowdfund.ZeroPrincipal, errors.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(crypto.Keccak256(payload), sig)
	if err != nil {
		return crowdfund.ZeroPrincipal, errors.Wrap(err, "failed to recover public key")
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// verifyCaller checks the request headers and that the request was signed by from.
func verifyCaller(method, path, digest, signature string, body []byte, from crowdfund.Principal) error {
	sig, err := validateRequestHeaders(digest, signature, body)
	if err != nil {
		return errors.Wrap(errBadSignature, err.Error())
	}
	signer, err := recoverSigner(sig, signingPayload(method, path, body))
	if err != nil {
		return errors.Wrap(errBadSignature, err.Error())
	}
	if signer != from {
		return errors.Wrapf(errBadSignature, "signed by %s, not by %s", signer.Hex(), from.Hex())
	}
	return nil
}
