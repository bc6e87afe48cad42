package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/model"
)

// earnTx начисляет баллы внутри переданной транзакции: баланс создаётся или
// увеличивается атомарным upsert-ом, в журнал дописывается положительная запись
// указанного типа (earn для заказов, bonus для розыгрыша).
func earnTx(ctx context.Context, tx pgx.Tx, userID, points int64, txType model.RewardTransactionType, description string) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx,
		`INSERT INTO user_rewards (user_id, points) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET points = user_rewards.points + EXCLUDED.points
		 RETURNING points`,
		userID, points,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("upsert balance: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO reward_transactions (user_id, points, type, description) VALUES ($1, $2, $3, $4)`,
		userID, points, txType, description,
	)
	if err != nil {
		return 0, fmt.Errorf("insert reward transaction: %w", err)
	}

	return balance, nil
}

// redeemTx списывает баллы внутри переданной транзакции. Проверка баланса и
// списание — один условный UPDATE: при недостатке баллов строка не меняется и
// возвращается ErrInsufficientPoints, отдельного чтения баланса нет.
func redeemTx(ctx context.Context, tx pgx.Tx, userID, points int64, description string) error {
	var balance int64
	err := tx.QueryRow(ctx,
		`UPDATE user_rewards SET points = points - $2
		 WHERE user_id = $1 AND points >= $2
		 RETURNING points`,
		userID, points,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInsufficientPoints
		}
		return fmt.Errorf("decrement balance: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO reward_transactions (user_id, points, type, description) VALUES ($1, $2, 'redeem', $3)`,
		userID, -points, description,
	)
	if err != nil {
		return fmt.Errorf("insert reward transaction: %w", err)
	}

	return nil
}

// Earn начисляет баллы пользователю и возвращает обновлённый баланс.
func (r *PostgresRepository) Earn(ctx context.Context, userID, points int64, description string) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	balance, err := earnTx(ctx, tx, userID, points, model.RewardEarn, description)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return balance, nil
}

// Redeem списывает баллы пользователя и возвращает обновлённый баланс.
func (r *PostgresRepository) Redeem(ctx context.Context, userID, points int64, description string) (int64, error) {
	var balance int64

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := redeemTx(ctx, tx, userID, points, description); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx,
			`SELECT points FROM user_rewards WHERE user_id = $1`, userID,
		).Scan(&balance); err != nil {
			return fmt.Errorf("select balance: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("%w: %v", errAmbiguousCommit, err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

// GetBalance возвращает текущий баланс баллов пользователя.
func (r *PostgresRepository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var points int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE((SELECT points FROM user_rewards WHERE user_id = $1), 0)`,
		userID,
	).Scan(&points)
	if err != nil {
		return 0, fmt.Errorf("select balance: %w", err)
	}
	return points, nil
}

// GetRewardHistory возвращает журнал операций бонусного счёта пользователя.
func (r *PostgresRepository) GetRewardHistory(ctx context.Context, userID int64) ([]model.RewardTransaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, points, type, description, created_at
		 FROM reward_transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select reward transactions: %w", err)
	}
	defer rows.Close()

	var res []model.RewardTransaction
	for rows.Next() {
		var rt model.RewardTransaction
		if err := rows.Scan(&rt.UserID, &rt.Points, &rt.Type, &rt.Description, &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reward transaction: %w", err)
		}
		res = append(res, rt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// RecordSpin фиксирует результат ежедневного розыгрыша и, если выпали баллы,
// начисляет их в той же транзакции. Уникальный индекс по (user_id, spin_date)
// сериализует параллельные попытки: повторная за день даёт ErrAlreadySpun.
func (r *PostgresRepository) RecordSpin(ctx context.Context, userID int64, rewardType string, rewardValue int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO spin_rewards (user_id, reward_type, reward_value) VALUES ($1, $2, $3)`,
		userID, rewardType, rewardValue,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrAlreadySpun
		}
		return fmt.Errorf("insert spin reward: %w", err)
	}

	if rewardValue > 0 {
		if _, err := earnTx(ctx, tx, userID, rewardValue, model.RewardBonus, "daily spin reward"); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
