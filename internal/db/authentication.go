package db

import (
	"context"
	"errors"
	"unicode"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"
	"gitlab.com/avoncourt/revue/internal/models"
	"gitlab.com/avoncourt/revue/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

func (sdb *SharedDB) CreateUser(ctx context.Context, user *models.User, passwd string) (uH *UserH, err error) {
	if !utils.ValidateUsername(user.Name) {
		return nil, models.ErrInvalidFormat
	}

	if !validatePasswd(passwd, []string{user.Name}) {
		return nil, models.ErrWeakPasswd
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passwd), sdb.bcryptCost)
	if err != nil {
		return nil, err
	}

	err = execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
		err := insertUser(ctx, tx, user, hash)
		if isConstraintErr(err, "users_name_key") {
			return models.ErrUsernameAlreadyUsed
		} else if err != nil {
			return err
		}

		// The first registered account is the privileged one
		sql, args, _ := psql.Select("COUNT(*)").From("users").ToSql()
		c := 0
		row := tx.QueryRow(ctx, sql, args...)
		if err := row.Scan(&c); err != nil {
			return err
		}
		if c == 1 {
			sql, args, _ := psql.
				Update("users").
				Set("is_superuser", true).
				Where(sq.Eq{"id": user.ID}).
				ToSql()
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return err
			}
			user.IsSuperuser = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Return handle to this user
	uH = &UserH{
		id:       user.ID,
		perms:    userPerms{Delete: true, Read: true},
		sharedDB: sdb.db,
	}

	return uH, nil
}

func (sdb *SharedDB) Login(ctx context.Context, name string, passwd string) (token string, err error) {
	sql, args, _ := psql.
		Select("id", "passwd_hash").
		From("users").
		Where(sq.Eq{"name": name}).
		ToSql()

	var data struct {
		ID         int
		PasswdHash string
	}
	err = pgxscan.Get(ctx, sdb.db, &data, sql, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", models.ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(data.PasswdHash), []byte(passwd))
	if compareErr != nil {
		return "", compareErr
	}

	// Insert a new token
	token = utils.GenToken(TokenLen)
	sql, args, _ = psql.
		Insert("tokens").
		Columns("user_id", "token").
		Values(data.ID, token).
		ToSql()

	_, err = sdb.db.Exec(ctx, sql, args...)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (sdb *SharedDB) Signout(ctx context.Context, token string) error {
	_, err := sdb.db.Exec(ctx, "DELETE FROM tokens WHERE tokens.token = $1", token)
	if err != nil {
		return err
	}
	return nil
}

func validatePasswd(passwd string, userInputs []string) bool {
	if len(passwd) < 8 || len(passwd) > 64 {
		return false
	}
	for _, input := range userInputs {
		if passwd == input {
			return false
		}
	}

	containsLetter := false
	containsNumber := false
	containsSpecial := false
	for _, r := range passwd {
		if !unicode.IsPrint(r) {
			return false
		}

		if unicode.IsLetter(r) {
			containsLetter = true
		} else if unicode.IsNumber(r) {
			containsNumber = true
		} else {
			// If it's not a number and not a letter, it's special
			containsSpecial = true
		}
	}
	if !containsLetter || !containsNumber || !containsSpecial {
		return false
	}

	return true
}

func insertUser(ctx context.Context, db DBTX, user *models.User, hash []byte) error {
	sql, args, _ := psql.
		Insert("users").
		Columns("name", "passwd_hash").
		Values(user.Name, hash).
		Suffix("RETURNING id").
		ToSql()

	row := db.QueryRow(ctx, sql, args...)
	err := row.Scan(&user.ID)
	return err
}
