// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package journal

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-pg/pg"
	"github.com/go-pg/pg/orm"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
	"github.com/insolar/crowdfunding/observability"
)

type TransactionSchema struct {
	tableName struct{} `sql:"transactions"` //nolint: unused,structcheck

	TxID        string            `sql:"tx_id,pk"`
	Block       int64             `sql:"block,notnull"`
	Method      string            `sql:"method,notnull"`
	FromAddress string            `sql:"from_address,notnull"`
	ToAddress   string            `sql:"to_address,notnull"`
	Value       string            `sql:"value,notnull"`
	Args        map[string]string `sql:"args"`
	Timestamp   int64             `sql:"timestamp,notnull"`
	Status      string            `sql:"status,notnull"`
	Error       string            `sql:"error"`
	Events      []crowdfund.Event `sql:"events"`
}

type PGJournal struct {
	log          *logrus.Logger
	errorCounter prometheus.Counter
	db           orm.DB
}

func NewPGJournal(obs *observability.Observability, db orm.DB) *PGJournal {
	errorCounter := obs.Counter(prometheus.CounterOpts{
		Name: "crowdfunding_journal_storage_error_counter",
		Help: "Number of failed journal writes and reads.",
	})
	return &PGJournal{
		log:          obs.Log(),
		errorCounter: errorCounter,
		db:           db,
	}
}

func (s *PGJournal) Append(ctx context.Context, receipt *crowdfund.Receipt) error {
	if receipt == nil {
		s.log.Warnf("trying to append nil receipt")
		return nil
	}
	row := transactionSchema(receipt)
	res, err := s.db.ModelContext(ctx, row).
		OnConflict("DO NOTHING").
		Insert(row)
	if err != nil {
		s.errorCounter.Inc()
		return errors.Wrapf(err, "failed to insert tx %s", row.TxID)
	}
	if res.RowsAffected() == 0 {
		s.errorCounter.Inc()
		s.log.WithField("tx_id", row.TxID).Errorf("failed to insert tx")
		return errors.Wrapf(ErrDuplicate, "tx %s", row.TxID)
	}
	return nil
}

func (s *PGJournal) Finalize(ctx context.Context, receipt *crowdfund.Receipt) error {
	row := transactionSchema(receipt)
	res, err := s.db.ModelContext(ctx, row).
		Column("block", "status", "error", "events").
		WherePK().
		Update()
	if err != nil {
		s.errorCounter.Inc()
		return errors.Wrapf(err, "failed to update tx %s", row.TxID)
	}
	if res.RowsAffected() == 0 {
		s.errorCounter.Inc()
		return errors.Wrapf(ErrNotFound, "tx %s", row.TxID)
	}
	return nil
}

func (s *PGJournal) Receipt(ctx context.Context, txID string) (*crowdfund.Receipt, error) {
	row := &TransactionSchema{}
	err := s.db.ModelContext(ctx, row).Where("tx_id = ?", txID).Select()
	if err == pg.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		s.errorCounter.Inc()
		return nil, errors.Wrapf(err, "failed to select tx %s", txID)
	}
	return row.receipt()
}

// All orders by the serial the table assigns on insert.
func (s *PGJournal) All(ctx context.Context) ([]*crowdfund.Receipt, error) {
	var rows []TransactionSchema
	err := s.db.ModelContext(ctx, &rows).
		Order("seq ASC").
		Select()
	if err != nil {
		s.errorCounter.Inc()
		return nil, errors.Wrap(err, "failed to select txs")
	}
	res := make([]*crowdfund.Receipt, 0, len(rows))
	for i := range rows {
		r, err := rows[i].receipt()
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, nil
}

func transactionSchema(r *crowdfund.Receipt) *TransactionSchema {
	return &TransactionSchema{
		TxID:        r.TxID,
		Block:       int64(r.Block),
		Method:      r.Method,
		FromAddress: r.From.Hex(),
		ToAddress:   r.To.Hex(),
		Value:       crowdfund.Copy(r.Value).String(),
		Args:        r.Args,
		Timestamp:   r.Timestamp.UnixNano(),
		Status:      string(r.Status),
		Error:       r.Error,
		Events:      r.Events,
	}
}

func (row *TransactionSchema) receipt() (*crowdfund.Receipt, error) {
	value, ok := new(big.Int).SetString(row.Value, 10)
	if !ok {
		return nil, errors.Errorf("tx %s has malformed value %q", row.TxID, row.Value)
	}
	return &crowdfund.Receipt{
		TxID:      row.TxID,
		Block:     uint64(row.Block),
		Method:    row.Method,
		From:      common.HexToAddress(row.FromAddress),
		To:        common.HexToAddress(row.ToAddress),
		Value:     value,
		Args:      row.Args,
		Status:    crowdfund.TxStatus(row.Status),
		Error:     row.Error,
		Events:    row.Events,
		Timestamp: time.Unix(0, row.Timestamp).UTC(),
	}, nil
}
