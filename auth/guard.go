package auth

import (
	"context"
	"errors"

	"snapserver/models"
	"snapserver/store"
)

// Decision は認可判定の結果です。対象が存在しない場合と対象が見えない場合は
// 存在の推測を防ぐためNotFoundに畳み込みます。
type Decision int

const (
	Allowed Decision = iota
	NotAllowed
	NotFound
)

// RoomRole はプレイヤーのルーム内ロールをメンバーシップ行から引きます。
// ロールは必ずこの照会で決定し、リクエスト由来の値からは導出しません。
func RoomRole(ctx context.Context, st store.Store, roomID, playerID uint) (string, error) {
	return st.MembershipRole(ctx, roomID, playerID)
}

// RequireOwner はオーナー専用操作の判定を行います。
func RequireOwner(ctx context.Context, st store.Store, roomID, playerID uint) (Decision, error) {
	role, err := RoomRole(ctx, st, roomID, playerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFound, nil
		}
		return NotAllowed, err
	}
	if role != models.RoleOwner {
		return NotAllowed, nil
	}
	return Allowed, nil
}

// ChallengeForOwner はチャレンジ行を取得し、本人所有のときだけ返します。
// 他人の行は存在しない扱い（NotFound）にします。
func ChallengeForOwner(ctx context.Context, st store.Store, challengeID, playerID uint) (*models.PlayerChallenge, Decision, error) {
	challenge, err := st.ChallengeByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFound, nil
		}
		return nil, NotFound, err
	}
	if challenge.PlayerID != playerID {
		return nil, NotFound, nil
	}
	return challenge, Allowed, nil
}
