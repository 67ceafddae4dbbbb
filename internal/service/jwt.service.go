package service

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	sessionKey = "session"
	peerIdKey  = "peer_id"
)

type Claims struct {
	Session string
	PeerId  int
}

func (s *service) generateJWT(sessionName string, peerId int) (string, error) {
	claims := jwt.MapClaims{
		sessionKey: sessionName,
		peerIdKey:  peerId,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(s.secret)
}

func (s *service) parseJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sessionName, ok := claims[sessionKey].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	// numbers decode as float64
	peerId, ok := claims[peerIdKey].(float64)
	if !ok || peerId < 1 {
		return nil, ErrInvalidToken
	}

	return &Claims{
		Session: sessionName,
		PeerId:  int(peerId),
	}, nil
}
