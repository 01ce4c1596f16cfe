package cont

import (
	"context"
)

type ctxKey string

const operatorKey ctxKey = "operator"

func PutOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey, operator)
}

func GetOperator(ctx context.Context) string {
	v, _ := ctx.Value(operatorKey).(string)
	return v
}
